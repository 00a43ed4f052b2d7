// Package entity describes the frePPLe input tables an ERP pass reconciles.
//
// A Descriptor maps the positional columns of an ERP query onto a target
// table: field kinds drive value conversion, the key fields form the natural
// key, and Ref marks a foreign key into an entity loaded earlier in the pass.
// The Catalog fixes the order in which entity types are loaded so that every
// reference resolves against rows committed before it.
package entity
