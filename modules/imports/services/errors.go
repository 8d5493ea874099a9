package services

import "github.com/iota-uz/bookkeeper/pkg/serrors"

var (
	ErrInvalidTransition = serrors.NewError("IMPORT_INVALID_TRANSITION", "import is not in a state that allows this operation", "Imports.Errors.InvalidTransition")
	ErrImportInProgress  = serrors.NewError("IMPORT_IN_PROGRESS", "import is currently importing", "Imports.Errors.InProgress")
	ErrHasImportedItems  = serrors.NewError("IMPORT_HAS_IMPORTED_ITEMS", "import already created domain rows", "Imports.Errors.HasImportedItems")
	ErrHasLinkedEntities = serrors.NewError("IMPORT_HAS_LINKED_ENTITIES", "ledger rows still reference this import", "Imports.Errors.HasLinkedEntities")
	ErrNotClaimed        = serrors.NewError("IMPORT_NOT_CLAIMED", "import could not be claimed for importing", "")
	ErrConcurrentUpdate  = serrors.NewError("IMPORT_CONCURRENT_UPDATE", "import changed while it was being updated", "")
	ErrInvalidRegister   = serrors.NewError("IMPORT_INVALID_REQUEST", "import request is invalid", "Imports.Errors.InvalidRequest")
	ErrMappingRequired   = serrors.NewError("IMPORT_MAPPING_REQUIRED", "mapped imports need an import mapping", "")
	ErrUnsupportedSource = serrors.NewError("IMPORT_UNSUPPORTED_SOURCE", "unsupported import source", "")

	ErrImportDeadline = serrors.NewError("IMPORT_DEADLINE", "import exceeded its deadline", "")
	ErrFilterDeadline = serrors.NewError("IMPORT_FILTER_DEADLINE", "filter workflow exceeded the import deadline", "")
	ErrTimedOut       = serrors.NewError("IMPORT_TIMED_OUT", "Import Timed Out", "")

	ErrLinkedNotFound = serrors.NewError("LINKED_NOT_FOUND", "linked entity not found", "")
	ErrLinkedInactive = serrors.NewError("LINKED_INACTIVE", "linked entity is not active", "")
)
