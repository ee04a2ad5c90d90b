package models

import "time"

// Member с полностью сброшенными флагами считается отсутствующим.
type Member struct {
	UserID    int64
	CanCreate bool
	CanUpdate bool
	CanDelete bool
}

func (m *Member) HasAnyCapability() bool {
	return m.CanCreate || m.CanUpdate || m.CanDelete
}

type Collection struct {
	ID        int64
	OwnerID   int64
	Name      string
	Members   []Member
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberByUserID возвращает участника с хотя бы одним положительным правом.
func (c *Collection) MemberByUserID(userID int64) *Member {
	for i := range c.Members {
		if c.Members[i].UserID == userID && c.Members[i].HasAnyCapability() {
			return &c.Members[i]
		}
	}

	return nil
}

func (c *Collection) CanRead(userID int64) bool {
	return c.OwnerID == userID || c.MemberByUserID(userID) != nil
}

func (c *Collection) CanUpdateLinks(userID int64) bool {
	if c.OwnerID == userID {
		return true
	}

	member := c.MemberByUserID(userID)

	return member != nil && member.CanUpdate
}

// ArchivePreference хранит настройки архивации владельца коллекции.
// На ссылку они не копируются.
type ArchivePreference struct {
	UserID                  int64
	ArchiveAsScreenshot     bool
	ArchiveAsMonolith       bool
	ArchiveAsPDF            bool
	ArchiveAsReadable       bool
	ArchiveAsWaybackMachine bool
}
