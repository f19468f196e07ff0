// Package factory instantiates pluggable modules from configuration.
//
// A module is declared as a type name plus a map of raw settings, for example
// a trip-info store:
//
//	tripinfo:
//	  store:
//	    type: sqlite
//	    conf:
//	      path: trips.db
//
// Factories decode the raw settings with Decode, which understands json tags,
// weakly typed scalars and duration strings such as "30s".
package factory
