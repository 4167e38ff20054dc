package entity

// Component describes one drawable node type.
type Component struct {
	Type        string `json:"type"`
	Provider    string `json:"provider"`
	Category    string `json:"category"`
	Description string `json:"description"`
}
