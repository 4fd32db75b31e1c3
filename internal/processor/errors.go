package processor

import "modelibr/internal/apperr"

var errNotAvailable = apperr.New(apperr.CodeTransientDependency, "NOT_AVAILABLE: no backend configured for this job kind")
