package entity

import "slices"

// Cluster is a named visual grouping of nodes.
type Cluster struct {
	Name  string   `json:"name" bson:"name"`
	Nodes []string `json:"nodes" bson:"nodes"`
}

func (c Cluster) Contains(nodeID string) bool {
	return slices.Contains(c.Nodes, nodeID)
}
