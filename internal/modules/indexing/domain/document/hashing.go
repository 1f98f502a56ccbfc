package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// UniqueIdentifierHash 身份哈希：document_type + unique_id + search_space_id
func UniqueIdentifierHash(d *ConnectorDocument) string {
	return sha256Hex(fmt.Sprintf("%s:%s:%d", d.DocumentType, d.UniqueID, d.SearchSpaceID))
}

// ContentHash 内容哈希，按 search space 隔离
func ContentHash(d *ConnectorDocument) string {
	return sha256Hex(fmt.Sprintf("%d:%s", d.SearchSpaceID, d.SourceMarkdown))
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
