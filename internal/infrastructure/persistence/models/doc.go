// Package models contains the GORM persistence models behind the document store.
// Domain types never carry GORM tags; documents are stored as JSON text and
// mapped to docstore.Document on read.
package models
