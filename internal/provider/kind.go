package provider

import (
	"fmt"
	"strings"
)

// Kind identifies a backend family.
type Kind int

const (
	HSQLDB Kind = iota
	PostgreSQL
	Oracle
	MySQL
	SQLServer
	// SQLite is the embedded in-process backend used as the default.
	SQLite
)

var kindNames = map[Kind]string{
	HSQLDB:     "hsqldb",
	PostgreSQL: "postgresql",
	Oracle:     "oracle",
	MySQL:      "mysql",
	SQLServer:  "sqlserver",
	SQLite:     "sqlite",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a configured backend name to its Kind.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "postgres" {
		n = "postgresql"
	}
	for k, v := range kindNames {
		if v == n {
			return k, nil
		}
	}
	return 0, &UnknownBackendError{Name: name}
}

// IdentifierStrategy is how a backend generates row identifiers.
type IdentifierStrategy int

const (
	Identity IdentifierStrategy = iota
	Sequence
)

func (s IdentifierStrategy) String() string {
	switch s {
	case Identity:
		return "IDENTITY"
	case Sequence:
		return "SEQUENCE"
	}
	return fmt.Sprintf("IdentifierStrategy(%d)", int(s))
}
