// Package rest implements storage.Store against a PostgREST API, which is
// how Supabase exposes its tables at /rest/v1.
//
// Requests carry the service-role key in both the apikey and Authorization
// headers. Unique violations come back as 409 with code 23505 and map to
// storage.ErrDuplicateKey.
package rest
