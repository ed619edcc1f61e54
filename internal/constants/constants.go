// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	// DefaultDir is the per-user state directory, relative to $HOME.
	DefaultDir = ".grokteam"

	DefaultLogFile = "grokteam.log"

	DefaultHistoryFile = "chat_history"

	// DefaultAPIBaseURL is where the Grok Team backend mounts its API.
	DefaultAPIBaseURL = "http://localhost:8000/api"

	DefaultServerListen = "127.0.0.1:8000"

	// DefaultServerDatabase keeps the development backend in memory.
	DefaultServerDatabase = ":memory:"

	// DefaultAgents is the roster the backend team is built from. The first
	// entry is the coordinator.
	DefaultAgents = []string{"Grok", "Harper", "Benjamin", "Lucas"}

	// BroadcastRecipient is the chatroom_send recipient meaning every agent.
	BroadcastRecipient = "all"
)
