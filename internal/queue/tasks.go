package queue

const (
	TypeDocumentIngest  = "document:ingest"
	TypeSummaryGenerate = "summary:generate"
)

type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
	FilePath   string `json:"file_path"`
	FileType   string `json:"file_type"`
}

type SummaryGeneratePayload struct {
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
}
