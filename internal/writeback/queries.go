package writeback

import (
	"github.com/mesh-intelligence/wbverify/pkg/sparql"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

var (
	resource = sparql.Var("u")
	anyValue = sparql.Var("whatever")
	tagIRI   = sparql.IRI(types.TagIRI)
)

// byURL matches the resource whose nie:url is fileURI.
func byURL(fileURI string) sparql.Triple {
	return sparql.T(resource, sparql.NIEURL, sparql.Literal(fileURI))
}

// cleanQuery removes every value of predicate from the file's resource.
func cleanQuery(predicate sparql.Term, fileURI string) sparql.Update {
	return sparql.Update{
		Delete: []sparql.Triple{sparql.T(resource, predicate, anyValue)},
		Where: []sparql.Triple{
			byURL(fileURI),
			sparql.T(resource, predicate, anyValue),
		},
	}
}

// setQuery binds predicate to value on the file's resource.
func setQuery(predicate sparql.Term, value, fileURI string) sparql.Update {
	return sparql.Update{
		Insert: []sparql.Triple{sparql.T(resource, predicate, sparql.Literal(value))},
		Where:  []sparql.Triple{byURL(fileURI)},
	}
}

// tagQuery declares the test tag and relates the file's resource to it.
func tagQuery(fileURI string) sparql.Update {
	return sparql.Update{
		Insert: []sparql.Triple{
			sparql.T(tagIRI, sparql.RDFType, sparql.NAOTag),
			sparql.T(tagIRI, sparql.NAOPrefLabel, sparql.Literal(types.TagLabel)),
			sparql.T(resource, sparql.NAOHasTag, tagIRI),
		},
		Where: []sparql.Triple{byURL(fileURI)},
	}
}

// untagEdgeQuery removes the relation edge from the file's resource only.
func untagEdgeQuery(fileURI string) sparql.Update {
	return sparql.Update{
		Delete: []sparql.Triple{sparql.T(resource, sparql.NAOHasTag, tagIRI)},
		Where: []sparql.Triple{
			byURL(fileURI),
			sparql.T(resource, sparql.NAOHasTag, tagIRI),
		},
	}
}

// untagQuery retracts the relation edge from every resource and the tag's
// rdfs:Resource type. The insertion declared nao:Tag and a label, which
// this mode leaves to the store's resource semantics.
func untagQuery() sparql.Update {
	return sparql.Update{
		Delete: []sparql.Triple{
			sparql.T(tagIRI, sparql.RDFType, sparql.RDFSResource),
			sparql.T(resource, sparql.NAOHasTag, tagIRI),
		},
		Where: []sparql.Triple{sparql.T(resource, sparql.NAOHasTag, tagIRI)},
	}
}

// dropTagQuery retracts everything the insertion declared about the tag,
// whether or not any resource still relates to it.
func dropTagQuery() sparql.Update {
	return sparql.Update{
		Delete: []sparql.Triple{
			sparql.T(tagIRI, sparql.RDFType, sparql.NAOTag),
			sparql.T(tagIRI, sparql.NAOPrefLabel, sparql.Literal(types.TagLabel)),
		},
	}
}

// tagCleanupQueries returns the updates a tag cleanup issues, in order.
func tagCleanupQueries(mode TagCleanup) []sparql.Update {
	if mode == TagCleanupFull {
		return []sparql.Update{untagQuery(), dropTagQuery()}
	}
	return []sparql.Update{untagQuery()}
}
