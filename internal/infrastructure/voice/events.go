package voice

// Control-plane frame types. Commands carry a correlation id and are
// answered by an ack frame with the same id; events arrive unsolicited.
const (
	CommandJoin           = "control.join"
	CommandLeave          = "control.leave"
	CommandToggleMute     = "control.toggle_mute"
	CommandRequestSpeak   = "control.request_speak"
	CommandApproveSpeaker = "control.approve_speaker"
	CommandRejectSpeaker  = "control.reject_speaker"
	CommandBlockSpeaker   = "control.block_speaker"

	AckFrame = "ack"

	EventSpeakersChanged = "speakers.changed"
	EventSpeakRequested  = "speak.requested"
	EventMemberJoined    = "member.joined"
	EventMemberLeft      = "member.left"
)
