package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Session         Category = "Session"
	Moderation      Category = "Moderation"
	Catalog         Category = "Catalog"
	ChangeFeed      Category = "ChangeFeed"
	Voice           Category = "Voice"
	Mongo           Category = "Mongo"
	Redis           Category = "Redis"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Session
	Join      SubCategory = "Join"
	Leave     SubCategory = "Leave"
	Rejoin    SubCategory = "Rejoin"
	Refresh   SubCategory = "Refresh"
	Subscribe SubCategory = "Subscribe"
	RoleSync  SubCategory = "RoleSync"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	RoomID       ExtraKey = "RoomId"
	UserID       ExtraKey = "UserId"
	Attempt      ExtraKey = "Attempt"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
)
