package entity

// options controls the optional steps of read, write, and delete.
// Everything defaults to on; callers opt out per call.
type options struct {
	validate        bool
	updateIndex     bool
	createBackup    bool
	removeFromIndex bool
}

// Option is a functional option for Store operations.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		validate:        true,
		updateIndex:     true,
		createBackup:    true,
		removeFromIndex: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithoutValidation skips schema validation on read or write. Parsing
// still happens, so malformed YAML is reported regardless.
func WithoutValidation() Option {
	return func(o *options) { o.validate = false }
}

// WithoutIndexUpdate skips the best-effort category index upsert on write.
func WithoutIndexUpdate() Option {
	return func(o *options) { o.updateIndex = false }
}

// WithoutBackup skips the .bak copy on write and delete.
func WithoutBackup() Option {
	return func(o *options) { o.createBackup = false }
}

// WithoutIndexRemoval skips the best-effort category index removal on
// delete.
func WithoutIndexRemoval() Option {
	return func(o *options) { o.removeFromIndex = false }
}
