package entity

// Entity is anything the archive can persist to an elastic index.
type Entity interface {
	Slug() string
}
