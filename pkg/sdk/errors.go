package querydsl

import (
	"github.com/kailas-cloud/querydsl/internal/catalog"
	compileuc "github.com/kailas-cloud/querydsl/internal/usecase/compile"
	"github.com/kailas-cloud/querydsl/pkg/directive"
)

// Sentinel errors re-exported from the compiler.
// Use errors.Is() to check.
var (
	ErrEngineNotFound = catalog.ErrEngineNotFound
	ErrInvalidCatalog = catalog.ErrInvalidCatalog
	ErrBaseQuery      = catalog.ErrBaseQuery
	ErrInvalidRequest = compileuc.ErrInvalidRequest
	ErrValidation     = directive.ErrValidation
	ErrBinding        = directive.ErrBinding
	ErrConfiguration  = directive.ErrConfiguration
)
