package repository

// WithKB filters by the "kb_id" column. Every graph and document lookup
// carries this condition; stores never run without it.
func WithKB(kbID string) Option {
	return WithCondition("kb_id", kbID)
}

// WithDomainID filters by the "domain_id" column.
func WithDomainID(id string) Option {
	return WithCondition("domain_id", id)
}

// WithName filters by the "name" column.
func WithName(name string) Option {
	return WithCondition("name", name)
}

// WithType filters by the "type" column.
func WithType(entityType string) Option {
	return WithCondition("type", entityType)
}

// WithDocumentID filters by the "document_id" column.
func WithDocumentID(id string) Option {
	return WithCondition("document_id", id)
}

// WithDocumentIDIn filters by the "document_id" column using IN.
func WithDocumentIDIn(ids []string) Option {
	return WithConditionIn("document_id", ids)
}

// WithStatus filters by the "status" column.
func WithStatus(status string) Option {
	return WithCondition("status", status)
}
