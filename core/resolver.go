package core

// ConflictResolution is the closed set of outcomes a conflict resolver
// can choose for one conflicting reference.
type ConflictResolution int

const (
	// KeepLocal drops the remote change and keeps the local state.
	KeepLocal ConflictResolution = iota
	// OverwriteWithRemote takes the remote content.
	OverwriteWithRemote
	// MergedContent supplies caller-synthesized content that becomes
	// the entity's new state.
	MergedContent
)

func (c ConflictResolution) String() string {
	switch c {
	case KeepLocal:
		return "KEEP_LOCAL"
	case OverwriteWithRemote:
		return "OVERWRITE_WITH_REMOTE"
	case MergedContent:
		return "MERGED"
	default:
		return "UNKNOWN"
	}
}

// Resolution is a resolver decision. Data is only consulted for
// MergedContent; for a delete-versus-modify conflict a MergedContent
// resolution must carry the content that re-creates the entity.
type Resolution struct {
	Type ConflictResolution
	Data []byte
}

// ConflictResolver decides the outcome for a reference that changed
// divergently on both sides of a merge. local is nil when the entity
// was deleted locally, remote is nil when it was deleted remotely.
type ConflictResolver interface {
	Resolve(ref Reference, local, remote []byte) (Resolution, error)
}

// ProgressMonitor receives purely observational notifications during
// long operations. Implementations must not block.
type ProgressMonitor interface {
	BeginTask(name string, total int)
	SubTask(label string)
	Worked(n int)
}

// NullProgress is a ProgressMonitor that discards all notifications.
type NullProgress struct{}

func (NullProgress) BeginTask(string, int) {}
func (NullProgress) SubTask(string)        {}
func (NullProgress) Worked(int)            {}
