package testutils

import (
	"context"

	"github.com/papercomputeco/stacks/pkg/vector"
)

// AddCall records the arguments of one MockVectorDriver.Add invocation.
type AddCall struct {
	Collection string
	IDs        []string
	Texts      []string
	Metadatas  []map[string]any
}

// QueryCall records the arguments of one MockVectorDriver.Query invocation.
type QueryCall struct {
	Collection string
	QueryTexts []string
	NResults   int
	Where      vector.Where
}

// MockVectorDriver is a test vector driver that records calls and returns
// configurable results.
type MockVectorDriver struct {
	AddCalls     []AddCall
	QueryCalls   []QueryCall
	DeletedNames []string
	Closed       bool

	// Result is returned by Query. A nil Result yields an empty result.
	Result *vector.QueryResult

	// Err is returned by every operation when set.
	Err error
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, collection string, ids, texts []string, metadatas []map[string]any) error {
	if m.Err != nil {
		return m.Err
	}
	m.AddCalls = append(m.AddCalls, AddCall{
		Collection: collection,
		IDs:        ids,
		Texts:      texts,
		Metadatas:  metadatas,
	})
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, collection string, queryTexts []string, nResults int, where vector.Where) (*vector.QueryResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.QueryCalls = append(m.QueryCalls, QueryCall{
		Collection: collection,
		QueryTexts: queryTexts,
		NResults:   nResults,
		Where:      where,
	})
	if m.Result == nil {
		return vector.EmptyQueryResult(len(queryTexts)), nil
	}
	return m.Result, nil
}

func (m *MockVectorDriver) DeleteCollection(_ context.Context, collection string) error {
	if m.Err != nil {
		return m.Err
	}
	m.DeletedNames = append(m.DeletedNames, collection)
	return nil
}

func (m *MockVectorDriver) Close() error {
	m.Closed = true
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
