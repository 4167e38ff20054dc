package entity

// Specification is the raw, unvalidated shape produced by the model or
// supplied by a client. The builder turns it into a Diagram.
type Specification struct {
	Name        string           `json:"name"`
	Nodes       []NodeSpec       `json:"nodes"`
	Connections []ConnectionSpec `json:"connections"`
	Clusters    []ClusterSpec    `json:"clusters,omitempty"`
}

type NodeSpec struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Label   string `json:"label"`
	Cluster string `json:"cluster,omitempty"`
}

type ConnectionSpec struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

type ClusterSpec struct {
	Name  string   `json:"name"`
	Nodes []string `json:"nodes"`
}
