package agentos

import "time"

// ModuleType classifies how a module's failure affects the boot sequence.
// Core modules are mandatory: a core module that fails to initialize or start
// aborts the entire boot. Every other type is optional and fails in isolation.
type ModuleType string

const (
	ModuleTypeCore      ModuleType = "core"
	ModuleTypeService   ModuleType = "service"
	ModuleTypeDaemon    ModuleType = "daemon"
	ModuleTypePlugin    ModuleType = "plugin"
	ModuleTypeExtension ModuleType = "extension"
)

// Valid reports whether t is one of the known module types.
func (t ModuleType) Valid() bool {
	switch t {
	case ModuleTypeCore, ModuleTypeService, ModuleTypeDaemon, ModuleTypePlugin, ModuleTypeExtension:
		return true
	}
	return false
}

// ModuleStatus is the finite lifecycle state attached to both the catalog
// record and the live instance.
//
// Transitions: PENDING → INITIALIZING → RUNNING, with side exits to
// STOPPING → STOPPED and ERROR from any non-terminal state. ERROR is sticky
// until an explicit re-enable or reload.
type ModuleStatus string

const (
	StatusPending      ModuleStatus = "pending"
	StatusInitializing ModuleStatus = "initializing"
	StatusRunning      ModuleStatus = "running"
	StatusStopping     ModuleStatus = "stopping"
	StatusStopped      ModuleStatus = "stopped"
	StatusError        ModuleStatus = "error"
)

// Live reports whether a module in this status holds a registry entry.
// The registry invariant: an entry exists iff the status is INITIALIZING,
// RUNNING, or STOPPING.
func (s ModuleStatus) Live() bool {
	return s == StatusInitializing || s == StatusRunning || s == StatusStopping
}

// Terminal reports whether the status admits no further transitions short of
// an explicit re-enable or reload.
func (s ModuleStatus) Terminal() bool {
	return s == StatusStopped || s == StatusError
}

// Descriptor is the declarative identity of a module, created from a parsed
// manifest or from a static registration call. Descriptors are immutable once
// handed to the runtime; statuses live on the catalog record and the registry
// instance, not here.
type Descriptor struct {
	// Name is the unique, restart-stable key for this module.
	Name string

	// Version is a semantic version string. It is compared textually, never
	// parsed: drift detection needs equality, not ordering.
	Version string

	// Type determines failure fatality during boot. Defaults to service.
	Type ModuleType

	// Path is the filesystem location of the module's manifest directory.
	// Used only for manifest re-reads and CLI executor resolution.
	Path string

	// Dependencies lists the names of modules that must be running before
	// this one initializes. Duplicates are idempotent; self-reference is
	// invalid and surfaces as a cycle.
	Dependencies []string

	// Enabled modules are loaded; disabled modules are skipped at load time
	// but remain visible in the catalog.
	Enabled bool

	// Config and Metadata are opaque bags passed through unmodified to the
	// module's Init.
	Config   map[string]any
	Metadata map[string]any

	// Exports declares the capability surface the module instance must
	// expose after Init. Checked by the loader's validation step.
	Exports []ExportSpec

	// Commands declares the module's CLI surface. The runtime parses and
	// forwards these; execution belongs to the CLI layer.
	Commands []CommandSpec
}

// ExportKind is the declared shape of a capability accessor.
type ExportKind string

const (
	// ExportKindValue accepts any non-nil export.
	ExportKindValue ExportKind = "value"
	// ExportKindFunc requires the export to be a function.
	ExportKindFunc ExportKind = "func"
)

// ExportSpec declares one named accessor of a module's capability surface.
type ExportSpec struct {
	Name string     `yaml:"name" toml:"name" json:"name"`
	Kind ExportKind `yaml:"kind" toml:"kind" json:"kind"`
}

// CommandSpec declares one CLI command contributed by a module. The runtime
// treats this as pass-through data for the CLI front-end.
type CommandSpec struct {
	Name        string       `yaml:"name" toml:"name" json:"name"`
	Description string       `yaml:"description" toml:"description" json:"description"`
	Executor    string       `yaml:"executor" toml:"executor" json:"executor"`
	Options     []OptionSpec `yaml:"options" toml:"options" json:"options,omitempty"`
}

// OptionSpec declares one option of a module-contributed CLI command.
type OptionSpec struct {
	Name        string `yaml:"name" toml:"name" json:"name"`
	Description string `yaml:"description" toml:"description" json:"description"`
	Type        string `yaml:"type" toml:"type" json:"type"`
	Required    bool   `yaml:"required" toml:"required" json:"required"`
	Default     any    `yaml:"default" toml:"default" json:"default,omitempty"`
}

// Record is the persisted catalog row for a module: the descriptor plus
// runtime bookkeeping. Upserts are keyed by Name.
type Record struct {
	Name         string
	Version      string
	Type         ModuleType
	Path         string
	Dependencies []string
	Enabled      bool
	Status       ModuleStatus
	Error        string
	Config       map[string]any
	Metadata     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecordFromDescriptor builds a catalog row for a freshly discovered module.
func RecordFromDescriptor(desc Descriptor) Record {
	return Record{
		Name:         desc.Name,
		Version:      desc.Version,
		Type:         desc.Type,
		Path:         desc.Path,
		Dependencies: desc.Dependencies,
		Enabled:      desc.Enabled,
		Status:       StatusPending,
		Config:       desc.Config,
		Metadata:     desc.Metadata,
	}
}
