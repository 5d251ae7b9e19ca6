// Command lonnode drives a single LonTalk node core: the "run" subcommand
// sweeps the scheduler against a configured transceiver link, "config"
// inspects persisted node configuration, "nm" originates a network-
// management request and prints the decoded response, and "monitor" shows
// a live TUI of scheduler state.
package main

func main() {
	Execute()
}
