// Package toolkind enumerates the tool kinds the service can scaffold and
// expose as per-instance routers.
package toolkind

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned by Parse for names outside All().
var ErrUnknownKind = errors.New("unknown tool kind")

// Kind is a closed set of tool kinds.
type Kind string

const (
	RAGOpenSearch Kind = "rag_opensearch"
	NLPToSQL      Kind = "nlp_to_sql"
	GenericEmpty  Kind = "generic_empty"
)

// All returns every kind in a stable order.
func All() []Kind {
	return []Kind{RAGOpenSearch, NLPToSQL, GenericEmpty}
}

// Parse maps a name to its Kind.
func Parse(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) String() string { return string(k) }

// Template is the starter source written when an intent of this kind is
// scaffolded.
func (k Kind) Template() string {
	switch k {
	case RAGOpenSearch:
		return `# RAG over OpenSearch
import httpx

async def process(query: str):
    url = "http://localhost:9200/_search"
    response = httpx.get(url, params={"q": query})
    return response.json()
`
	case NLPToSQL:
		return `# Natural language to SQL
import sqlite3

def process(query: str):
    conn = sqlite3.connect("database.db")
    cursor = conn.cursor()
    sql_query = f"SELECT * FROM table WHERE column LIKE '%{query}%'"
    cursor.execute(sql_query)
    results = cursor.fetchall()
    conn.close()
    return results
`
	case GenericEmpty:
		return `# Generic empty intent
def process(input_data):
    return {"message": "Generic intent executed", "input": input_data}
`
	}
	return ""
}

// ProcessLabel is the result string a tool router of this kind reports.
func (k Kind) ProcessLabel() string {
	switch k {
	case RAGOpenSearch:
		return "RAG processing with OpenSearch"
	case NLPToSQL:
		return "SQL query generated"
	case GenericEmpty:
		return "Generic processing"
	}
	return ""
}
