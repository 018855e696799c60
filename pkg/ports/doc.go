/*
Package ports defines the driven ports (interfaces) of the itinera client.

These interfaces decouple the conversation engine from the server API, the
presentation layer and session persistence.

# Key Interfaces

  - Backend: the HTTP endpoints of the trip-planner server.
  - View: renders the intents the engine emits.
  - SessionStore: persists local session snapshots for resume.
  - DistributedLocker: coordinates access to a shared session store.
*/
package ports
