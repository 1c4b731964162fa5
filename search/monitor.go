package search

import "github.com/docdex/docdex/core"

// QueryMonitor provides hooks to observe query execution.
// Implement this interface to track intermediate steps during retrieval.
type QueryMonitor interface {
	Start(query core.Query)
	AfterEmbedding(dimension int)
	AfterVectorSearch(results []*core.SearchResult)
	Finish(response *core.Response)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query)                        {}
func (n *noopMonitor) AfterEmbedding(_ int)                      {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.SearchResult)  {}
func (n *noopMonitor) Finish(_ *core.Response)                   {}
