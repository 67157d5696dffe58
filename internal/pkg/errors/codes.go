package errors

import "net/http"

var (
	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrShopNotFound = New(
		"SHOP_NOT_FOUND",
		"No shop found near the given point",
		http.StatusNotFound,
	)

	ErrProfileNotFound = New(
		"PROFILE_NOT_FOUND",
		"User profile not found",
		http.StatusNotFound,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrGenerationFailed = New(
		"GENERATION_FAILED",
		"Message generation failed",
		http.StatusInternalServerError,
	)

	ErrQuerySourceError = New(
		"QUERY_SOURCE_ERROR",
		"Query source operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
