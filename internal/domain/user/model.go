package user

import (
	"strconv"
)

// Ref identifies a Telegram user. Username is optional and may change over time.
type Ref struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Handle returns "@username" or a placeholder when the user has none.
func (r Ref) Handle() string {
	if r.Username == "" {
		return "No username"
	}
	return "@" + r.Username
}

// Mention returns an HTML tg://user link labelled with name.
func (r Ref) Mention(name string) string {
	if name == "" {
		name = r.Handle()
	}
	return `<a href="tg://user?id=` + strconv.FormatInt(r.ID, 10) + `">` + name + `</a>`
}

// ContainsID reports whether refs has a user with id.
func ContainsID(refs []Ref, id int64) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}
