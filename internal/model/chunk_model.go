package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Chunk struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_chunks_doc_ordinal"`
	ChunkIndex int             `gorm:"not null;default:0;uniqueIndex:idx_chunks_doc_ordinal"` // 0-based, contiguous within a document
	Content    string          `gorm:"type:text;not null"`
	Embedding  pgvector.Vector `gorm:"type:vector(768)"` // must match embedding.Dimensions
	Metadata   datatypes.JSON  `gorm:"type:jsonb"` // free-form: token count, etc.
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	DeletedAt  gorm.DeletedAt  `gorm:"index"`
}

func (Chunk) TableName() string {
	return "chunks"
}
