// Package docs NearYou Pipeline API.
//
// Location-aware advertising pipeline. GPS events are consumed from the
// broker, enriched with the nearest point of interest, gated by
// proximity and turned into personalised promotional messages before
// landing in the analytical store.
//
// Exposed services:
// - Message generator: personalised message generation with
//   content-addressed caching
// - Query service: timeseries and aggregate analytics with
//   stream-vs-batch routing, user activity and shop performance views
//
//	Schemes: http
//	BasePath: /
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package docs
