// Package factory instantiates pluggable modules (snapshot media, metrics
// sinks) from configuration. A module is a type name plus raw settings that
// the factory decodes into its own struct:
//
//	snapshot:
//	  media:
//	    - type: file
//	      conf:
//	        path: /var/lib/fuelbuddy/snapshot.json
//	    - type: mqtt
//	      conf:
//	        topic: fuelbuddy/snapshot
package factory
