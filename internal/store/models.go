package store

import "time"

type ItemType string

const (
	ItemChecklist ItemType = "checklist"
	ItemNote      ItemType = "note"
)

// ParseItemType accepts the singular and plural spellings used in routes.
func ParseItemType(raw string) (ItemType, bool) {
	switch raw {
	case "checklist", "checklists":
		return ItemChecklist, true
	case "note", "notes":
		return ItemNote, true
	default:
		return "", false
	}
}

type ChecklistType string

const (
	ChecklistSimple ChecklistType = "simple"
	ChecklistTask   ChecklistType = "task"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusPaused     TaskStatus = "paused"
)

func ValidTaskStatus(status TaskStatus) bool {
	switch status {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusPaused:
		return true
	default:
		return false
	}
}

// Uncategorized is the category of items created without one.
const Uncategorized = "Uncategorized"

type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	IsAdmin      bool      `json:"isAdmin"`
	APIKey       string    `json:"apiKey,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Item struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Order     int        `json:"order"`
	Status    TaskStatus `json:"status,omitempty"`
	// Time is tracked time in seconds for task items.
	Time int `json:"time,omitempty"`
}

type Checklist struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Category  string        `json:"category"`
	Type      ChecklistType `json:"type"`
	Items     []Item        `json:"items"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Owner     string        `json:"owner"`

	path string
}

// Path is the file backing the checklist, relative to the data root.
func (c Checklist) Path() string { return c.path }

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Owner     string    `json:"owner"`

	path string
}

func (n Note) Path() string { return n.path }

type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Grant struct {
	ItemID           string    `json:"itemId"`
	ItemType         ItemType  `json:"itemType"`
	Owner            string    `json:"owner"`
	IsPubliclyShared bool      `json:"isPubliclyShared"`
	SharedWith       []string  `json:"sharedWith"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// SharedWithUser reports whether username is named in the grant.
func (g *Grant) SharedWithUser(username string) bool {
	if g == nil {
		return false
	}
	for _, name := range g.SharedWith {
		if name == username {
			return true
		}
	}
	return false
}

type AppSettings struct {
	AppName        string `json:"appName"`
	AppDescription string `json:"appDescription"`
	Icon16         string `json:"16x16Icon"`
	Icon32         string `json:"32x32Icon"`
	Icon180        string `json:"180x180Icon"`
}

func DefaultSettings() AppSettings {
	return AppSettings{
		AppName:        "Checkmark",
		AppDescription: "Checklists and notes for small teams",
	}
}
