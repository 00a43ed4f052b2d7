// Package params turns the name=value inputs of a sync pass into maps:
// repeated --erp-param and --query flags, and --env-file files loaded
// with godotenv.
package params
