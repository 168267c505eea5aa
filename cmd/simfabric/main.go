// Command simfabric runs the packet-switched network simulator: it loads a
// topology, wires devices and links through the simulator mediator, and
// serves terminal-facing operations until shut down.
package main

import "github.com/netfabric/simfabric/internal/simcmd"

func main() {
	simcmd.Main()
}
