/*
Package domain contains the core models of the itinera conversation client.

It defines the session snapshot, the messages shown to the user, the request and
connection vocabularies, and the intents the engine asks a view to render. The
package is kept free of I/O so that every other layer can depend on it.

# Key Entities

  - Session: snapshot of a conversation (question index, answers, message history).
  - Message: a single rendered bubble, either from the user or the assistant.
  - Intent: a structural description of what the host should render.
  - Outcome: the tagged result every request settles into.
*/
package domain
