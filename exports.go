package agentos

import (
	"fmt"
	"reflect"
)

// ValidateExports checks a module's capability surface against the export
// declarations in its descriptor. Modules satisfy the Module interface at
// compile time, but the capability surface crosses a plugin boundary that
// static typing cannot guarantee, so presence and kind of each declared
// accessor are checked once at registration time.
//
// A surface missing a declared accessor, or exposing one of the wrong kind,
// fails validation — the module transitions to ERROR even though Init
// returned successfully.
func ValidateExports(desc Descriptor, module Module) error {
	if len(desc.Exports) == 0 {
		return nil
	}
	surface := module.Exports()
	for _, spec := range desc.Exports {
		value, ok := surface[spec.Name]
		if !ok {
			return fmt.Errorf("%w: module %q export %q", ErrExportMissing, desc.Name, spec.Name)
		}
		if value == nil {
			return fmt.Errorf("%w: module %q export %q", ErrExportNil, desc.Name, spec.Name)
		}
		if spec.Kind == ExportKindFunc && reflect.TypeOf(value).Kind() != reflect.Func {
			return fmt.Errorf("%w: module %q export %q is %T, want func",
				ErrExportWrongKind, desc.Name, spec.Name, value)
		}
	}
	return nil
}
