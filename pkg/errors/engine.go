package errors

// EngineError is a specialized error type for failures in the segment
// writer, merge, TOC-publish, and search paths of the core engine. It
// embeds baseError to inherit chaining and structured details, then adds
// the context needed to pinpoint which generation, segment, or field was
// involved.
type EngineError struct {
	*baseError

	indexName  string // Name of the index the TOC/segment belongs to.
	generation int64  // TOC generation involved, if any.
	segmentID  string // Segment id (hex) involved, if any.
	field      string // Schema field name involved, if any.
}

// NewEngineError creates a new engine-specific error with the provided context.
func NewEngineError(err error, code ErrorCode, msg string) *EngineError {
	return &EngineError{baseError: NewBaseError(err, code, msg)}
}

// Override base error methods to return *EngineError instead of *baseError.

func (ee *EngineError) WithMessage(msg string) *EngineError {
	ee.baseError.WithMessage(msg)
	return ee
}

func (ee *EngineError) WithCode(code ErrorCode) *EngineError {
	ee.baseError.WithCode(code)
	return ee
}

func (ee *EngineError) WithDetail(key string, value any) *EngineError {
	ee.baseError.WithDetail(key, value)
	return ee
}

// WithIndexName records which named index the error occurred on.
func (ee *EngineError) WithIndexName(name string) *EngineError {
	ee.indexName = name
	return ee
}

// WithGeneration records the TOC generation involved in the error.
func (ee *EngineError) WithGeneration(gen int64) *EngineError {
	ee.generation = gen
	return ee
}

// WithSegmentID records the segment id involved in the error.
func (ee *EngineError) WithSegmentID(id string) *EngineError {
	ee.segmentID = id
	return ee
}

// WithField records the schema field name involved in the error.
func (ee *EngineError) WithField(field string) *EngineError {
	ee.field = field
	return ee
}

func (ee *EngineError) IndexName() string  { return ee.indexName }
func (ee *EngineError) Generation() int64  { return ee.generation }
func (ee *EngineError) SegmentID() string  { return ee.segmentID }
func (ee *EngineError) Field() string      { return ee.field }

// Constructors for the error kinds named in the engine's error handling
// design. Each returns an *EngineError pre-populated with the right code so
// callers only need to attach the situational context.

// NewLockError reports that another writer already holds WRITELOCK.
func NewLockError(indexName string) *EngineError {
	return NewEngineError(nil, ErrorCodeLock, "another writer holds the write lock").
		WithIndexName(indexName)
}

// NewReadOnlyError reports a mutation attempted through read-only storage.
func NewReadOnlyError(operation string) *EngineError {
	return NewEngineError(nil, ErrorCodeReadOnly, "storage is read-only").
		WithDetail("operation", operation)
}

// NewTocNotFoundError reports that no readable TOC generation exists.
func NewTocNotFoundError(indexName string) *EngineError {
	return NewEngineError(nil, ErrorCodeTocNotFound, "no TOC generation found").
		WithIndexName(indexName)
}

// NewEmptyIndexError reports that the index has no segments.
func NewEmptyIndexError(indexName string) *EngineError {
	return NewEngineError(nil, ErrorCodeEmptyIndex, "index has no segments").
		WithIndexName(indexName)
}

// NewFileHeaderError reports a codec file magic/version mismatch.
func NewFileHeaderError(cause error, fileName string) *EngineError {
	return NewEngineError(cause, ErrorCodeFileHeader, "codec file header mismatch").
		WithDetail("fileName", fileName)
}

// NewSchemaError reports an unknown field or incompatible value.
func NewSchemaError(field, reason string) *EngineError {
	return NewEngineError(nil, ErrorCodeSchema, reason).WithField(field)
}

// NewQueryParserError reports a malformed query string.
func NewQueryParserError(cause error, query string) *EngineError {
	return NewEngineError(cause, ErrorCodeQueryParser, "failed to parse query").
		WithDetail("query", query)
}

// NewTimeLimitError reports that a Collector's deadline was exceeded.
func NewTimeLimitError() *EngineError {
	return NewEngineError(nil, ErrorCodeTimeLimit, "search exceeded its time limit")
}

// NewUnsupportedFeatureError reports a matcher feature request the
// underlying postings can't satisfy.
func NewUnsupportedFeatureError(feature, field string) *EngineError {
	return NewEngineError(nil, ErrorCodeUnsupportedFeature, "posting feature not available").
		WithField(field).
		WithDetail("feature", feature)
}

// NewOverrunError reports a cursor advanced past its end.
func NewOverrunError(cursor string) *EngineError {
	return NewEngineError(nil, ErrorCodeOverrun, "cursor advanced past end").
		WithDetail("cursor", cursor)
}

// NewSegmentNotFoundError reports that a SegmentList operation referenced
// a segment id not currently in the list.
func NewSegmentNotFoundError(segmentID string) *EngineError {
	return NewEngineError(nil, ErrorCodeSegmentNotFound, "segment not in list").
		WithSegmentID(segmentID)
}

// NewMergeNotFoundError reports that integrate/fail referenced an unknown
// merge id.
func NewMergeNotFoundError(mergeID string) *EngineError {
	return NewEngineError(nil, ErrorCodeMergeNotFound, "merge not found").
		WithDetail("mergeID", mergeID)
}
