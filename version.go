// Package zoteroenhancer augments bibliographic records with metadata from
// external sources: Google Books, keyed by ISBN, and OpenAlex, keyed by DOI.
package zoteroenhancer

const (
	AppName = "zoteroenhancer"
	Version = "0.2.1"
)
