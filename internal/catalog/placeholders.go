package catalog

import (
	"fmt"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
)

var placeholderNames = []struct {
	name  string
	topic string
	theme string
}{
	{"The Lobby", "Say hello while we reconnect", "ember"},
	{"Night Owls", "Late night, low stakes", "indigo"},
	{"Morning Brew", "Coffee and catch-up", "moss"},
	{"Open Mic", "Anyone can take the floor", "sand"},
	{"Quiet Corner", "Background listening", "slate"},
}

// placeholderRooms synthesizes a fixed room list so a total refresh
// failure never renders as an empty error state. Placeholder rooms are
// never written to the store and cannot be joined.
func placeholderRooms(count int) []domain.RoomView {
	if count <= 0 || count > len(placeholderNames) {
		count = 3
	}

	now := time.Now()
	views := make([]domain.RoomView, 0, count)
	for i := 0; i < count; i++ {
		p := placeholderNames[i]
		views = append(views, domain.RoomView{
			Room: domain.Room{
				ID:        fmt.Sprintf("placeholder-%d", i+1),
				Name:      p.name,
				Topic:     p.topic,
				Theme:     p.theme,
				Live:      true,
				CreatedAt: now,
			},
			Speakers:    []domain.Speaker{},
			Placeholder: true,
		})
	}
	return views
}
