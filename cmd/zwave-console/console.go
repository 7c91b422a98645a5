package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"

	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwave"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// Console runs operator commands against a live manager.
//
// Thread Safety: Handle must be called from one goroutine; notification
// output from Watch may interleave with it.
type Console struct {
	out       io.Writer
	outMu     sync.Mutex
	manager   *ozw.Manager
	inventory *ozw.Inventory
	logger    *logging.Logger
	watching  atomic.Bool
}

// NewConsole registers an inventory watcher on manager and returns a
// console writing to out. logger is the one whose level log-level changes.
func NewConsole(manager *ozw.Manager, out io.Writer, logger *logging.Logger) (*Console, error) {
	inv := ozw.NewInventory()
	if !manager.AddWatcher(inv) {
		return nil, ozw.ErrNoManager
	}
	return &Console{out: out, manager: manager, inventory: inv, logger: logger}, nil
}

// Watch prints every notification from sub while watching is on, and logs
// nodes going dead or coming back regardless. It returns when the
// subscription is closed.
func (c *Console) Watch(sub *ozw.Subscription) {
	for n := range sub.C() {
		if n.Type == ozw.NotificationNotification && c.logger != nil {
			switch n.Code {
			case ozw.CodeDead:
				c.logger.Node(n.HomeID, n.NodeID).Warn("node dead")
			case ozw.CodeAlive:
				c.logger.Node(n.HomeID, n.NodeID).Info("node alive")
			}
		}
		if c.watching.Load() {
			c.printf("* %s\n", n)
		}
	}
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// errUsage marks an argument error; the command's usage line is printed.
var errUsage = errors.New("usage")

type command struct {
	usage string
	help  string
	run   func(c *Console, args []string) error
}

var commands = map[string]command{
	"homes":         {"homes", "List controllers and their start-up state", (*Console).cmdHomes},
	"add-driver":    {"add-driver <path> [serial|hid]", "Bring a controller online", (*Console).cmdAddDriver},
	"remove-driver": {"remove-driver <path>", "Take a controller offline", (*Console).cmdRemoveDriver},
	"controller":    {"controller <home>", "Show controller details", (*Console).cmdController},
	"nodes":         {"nodes [home]", "List nodes", (*Console).cmdNodes},
	"node":          {"node <home.node>", "Show a node and its neighbors", (*Console).cmdNode},
	"values":        {"values [home.node]", "List value ids", (*Console).cmdValues},
	"get":           {"get <value-id>", "Read a value", (*Console).cmdGet},
	"set":           {"set <value-id> <text>", "Write a value", (*Console).cmdSet},
	"poll":          {"poll <value-id> on [intensity] | off", "Enable or disable polling", (*Console).cmdPoll},
	"heal":          {"heal <home>[.node] [routes]", "Heal the network or one node", (*Console).cmdHeal},
	"test":          {"test <home>[.node] [count]", "Send test frames", (*Console).cmdTest},
	"add-node":      {"add-node <home> [secure]", "Start inclusion", (*Console).cmdAddNode},
	"remove-node":   {"remove-node <home>", "Start exclusion", (*Console).cmdRemoveNode},
	"cancel":        {"cancel <home>", "Cancel the running controller command", (*Console).cmdCancel},
	"refresh":       {"refresh <home.node>", "Request node state", (*Console).cmdRefresh},
	"config":        {"config <home.node>", "Request all configuration parameters", (*Console).cmdConfig},
	"soft-reset":    {"soft-reset <home>", "Soft reset the controller", (*Console).cmdSoftReset},
	"stats":         {"stats <home>", "Log driver statistics", (*Console).cmdStats},
	"watch":         {"watch on|off", "Print notifications as they arrive", (*Console).cmdWatch},
	"log-level":     {"log-level [debug|info|warn|error]", "Show or change the log level", (*Console).cmdLogLevel},
}

// Handle runs one input line. It reports false when the console should exit.
func (c *Console) Handle(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit", "q":
		c.printf("Exiting...\n")
		return false
	case "help", "?":
		c.printHelp()
		return true
	}

	cmd, ok := commands[name]
	if !ok {
		c.printf("Unknown command: %s (type 'help' for commands)\n", name)
		return true
	}
	if err := cmd.run(c, args); err != nil {
		if errors.Is(err, errUsage) {
			c.printf("Usage: %s\n", cmd.usage)
		} else {
			c.printf("Error: %v\n", err)
		}
	}
	return true
}

func (c *Console) printHelp() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	c.outMu.Lock()
	defer c.outMu.Unlock()
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Z-Wave Console Commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintf(w, "  help\tShow this help\n  quit\tExit\n")
	w.Flush() //nolint:errcheck // Console output
}

// accepted turns a manager result into an error.
func accepted(done bool, what string) error {
	if !done {
		return fmt.Errorf("%s was not accepted", what)
	}
	return nil
}

func (c *Console) cmdHomes(_ []string) error {
	homes := c.inventory.Homes()
	if len(homes) == 0 {
		c.printf("No controllers online\n")
		return nil
	}
	for _, h := range homes {
		c.printf("%s ready=%t queried=%t some_dead=%t\n", zwave.FormatHomeID(h.HomeID), h.Ready, h.Queried, h.SomeDead)
	}
	return nil
}

func (c *Console) cmdAddDriver(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	var iface ozw.ControllerInterface
	if len(args) == 2 {
		if err := iface.UnmarshalText([]byte(args[1])); err != nil {
			return err
		}
	} else {
		iface = ozw.InterfaceSerial
	}
	if err := accepted(c.manager.AddDriver(args[0], iface), "add driver"); err != nil {
		return err
	}
	c.printf("Driver %s added (%s)\n", args[0], iface)
	return nil
}

func (c *Console) cmdRemoveDriver(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := accepted(c.manager.RemoveDriver(args[0]), "remove driver"); err != nil {
		return err
	}
	c.printf("Driver %s removed\n", args[0])
	return nil
}

func (c *Console) cmdController(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	homeID, err := zwave.ParseHomeID(args[0])
	if err != nil {
		return err
	}
	info, found := c.manager.Controller(homeID)
	if !found {
		return fmt.Errorf("no controller for home %s", args[0])
	}
	c.printf("home:      %s\n", zwave.FormatHomeID(info.HomeID))
	c.printf("path:      %s (%s)\n", info.Path, info.Interface)
	c.printf("node:      %d (SUC %d)\n", info.NodeID, info.SUCNodeID)
	c.printf("primary:   %t\n", info.Primary)
	c.printf("bridge:    %t\n", info.Bridge)
	c.printf("library:   %s / %s\n", info.LibraryVersion, info.LibraryTypeName)
	c.printf("sendqueue: %d\n", info.SendQueue)
	return nil
}

func (c *Console) cmdNodes(args []string) error {
	var filter uint32
	switch len(args) {
	case 0:
	case 1:
		var err error
		if filter, err = zwave.ParseHomeID(args[0]); err != nil {
			return err
		}
	default:
		return errUsage
	}

	for _, ref := range c.inventory.Nodes() {
		if filter != 0 && ref.HomeID != filter {
			continue
		}
		info, found := c.manager.Node(ref.HomeID, ref.NodeID)
		if !found {
			continue
		}
		state := "ok"
		if info.Failed {
			state = "failed"
		}
		c.printf("%-14s %-20q %-24s %s\n", zwave.NodeAddress(ref.HomeID, ref.NodeID), info.Name, info.ProductName, state)
	}
	return nil
}

func (c *Console) cmdNode(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ref, err := zwave.ParseNodeAddress(args[0])
	if err != nil {
		return err
	}
	info, found := c.manager.Node(ref.HomeID, ref.NodeID)
	if !found {
		return fmt.Errorf("unknown node %s", args[0])
	}
	c.printf("node:      %s\n", zwave.NodeAddress(ref.HomeID, ref.NodeID))
	c.printf("name:      %s\n", info.Name)
	c.printf("location:  %s\n", info.Location)
	c.printf("product:   %s %s\n", info.ManufacturerName, info.ProductName)
	c.printf("type:      %s\n", info.Type)
	c.printf("listening: %t  routing: %t  zwave+: %t  failed: %t\n", info.Listening, info.Routing, info.ZWavePlus, info.Failed)

	neighbors, _ := c.manager.NodeNeighbors(ref.HomeID, ref.NodeID)
	parts := make([]string, len(neighbors))
	for i, n := range neighbors {
		parts[i] = strconv.Itoa(int(n))
	}
	c.printf("neighbors: [%s]\n", strings.Join(parts, " "))
	return nil
}

func (c *Console) cmdValues(args []string) error {
	var ids []ozw.ValueID
	switch len(args) {
	case 0:
		ids = c.inventory.Values()
	case 1:
		ref, err := zwave.ParseNodeAddress(args[0])
		if err != nil {
			return err
		}
		ids = c.inventory.NodeValues(ref.HomeID, ref.NodeID)
	default:
		return errUsage
	}

	for _, id := range ids {
		meta, _ := c.manager.ValueMeta(id)
		reading := "(write-only)"
		if !meta.WriteOnly {
			if v, err := c.manager.Value(id); err == nil {
				reading = v.String()
			}
		}
		c.printf("%s  %-8s %-24s %s %s\n", id, id.Type, meta.Label, reading, meta.Units)
	}
	return nil
}

func (c *Console) cmdGet(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := ozw.ParseValueID(args[0])
	if err != nil {
		return err
	}
	v, err := c.manager.Value(id)
	if err != nil {
		return err
	}
	meta, _ := c.manager.ValueMeta(id)
	c.printf("%s = %s %s\n", meta.Label, v.String(), meta.Units)
	return nil
}

func (c *Console) cmdSet(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	id, err := ozw.ParseValueID(args[0])
	if err != nil {
		return err
	}
	v, err := ozw.ParseValue(id.Type, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if err := c.manager.SetValue(id, v); err != nil {
		return err
	}
	c.printf("Set %s to %s\n", id, v.String())
	return nil
}

func (c *Console) cmdPoll(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	id, err := ozw.ParseValueID(args[0])
	if err != nil {
		return err
	}

	switch strings.ToLower(args[1]) {
	case "on":
		intensity := uint64(1)
		if len(args) == 3 {
			if intensity, err = strconv.ParseUint(args[2], 10, 8); err != nil || intensity == 0 {
				return errUsage
			}
		}
		return accepted(c.manager.EnablePoll(id, uint8(intensity)), "enable poll")
	case "off":
		return accepted(c.manager.DisablePoll(id), "disable poll")
	default:
		return errUsage
	}
}

// target parses "<home>" or "<home>.<node>".
func target(arg string) (homeID uint32, nodeID uint8, err error) {
	if strings.Contains(arg, ".") {
		ref, perr := zwave.ParseNodeAddress(arg)
		return ref.HomeID, ref.NodeID, perr
	}
	homeID, err = zwave.ParseHomeID(arg)
	return homeID, 0, err
}

func (c *Console) cmdHeal(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	homeID, nodeID, err := target(args[0])
	if err != nil {
		return err
	}
	routes := len(args) == 2 && args[1] == "routes"
	if nodeID != 0 {
		return accepted(c.manager.HealNetworkNode(homeID, nodeID, routes), "heal node")
	}
	return accepted(c.manager.HealNetwork(homeID, routes), "heal network")
}

func (c *Console) cmdTest(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	homeID, nodeID, err := target(args[0])
	if err != nil {
		return err
	}
	count := uint64(1)
	if len(args) == 2 {
		if count, err = strconv.ParseUint(args[1], 10, 32); err != nil || count == 0 {
			return errUsage
		}
	}
	if nodeID != 0 {
		return accepted(c.manager.TestNetworkNode(homeID, nodeID, uint32(count)), "test node")
	}
	return accepted(c.manager.TestNetwork(homeID, uint32(count)), "test network")
}

func (c *Console) homeArg(args []string) (uint32, error) {
	if len(args) < 1 {
		return 0, errUsage
	}
	return zwave.ParseHomeID(args[0])
}

func (c *Console) nodeArg(args []string) (ozw.NodeRef, error) {
	if len(args) != 1 {
		return ozw.NodeRef{}, errUsage
	}
	return zwave.ParseNodeAddress(args[0])
}

func (c *Console) cmdAddNode(args []string) error {
	homeID, err := c.homeArg(args)
	if err != nil {
		return err
	}
	secure := len(args) == 2 && args[1] == "secure"
	return accepted(c.manager.AddNode(homeID, secure), "add node")
}

func (c *Console) cmdRemoveNode(args []string) error {
	homeID, err := c.homeArg(args)
	if err != nil {
		return err
	}
	return accepted(c.manager.RemoveNode(homeID), "remove node")
}

func (c *Console) cmdCancel(args []string) error {
	homeID, err := c.homeArg(args)
	if err != nil {
		return err
	}
	return accepted(c.manager.CancelControllerCommand(homeID), "cancel")
}

func (c *Console) cmdRefresh(args []string) error {
	ref, err := c.nodeArg(args)
	if err != nil {
		return err
	}
	return accepted(c.manager.RequestNodeState(ref.HomeID, ref.NodeID), "refresh node")
}

func (c *Console) cmdConfig(args []string) error {
	ref, err := c.nodeArg(args)
	if err != nil {
		return err
	}
	return accepted(c.manager.RequestAllConfigParams(ref.HomeID, ref.NodeID), "request config")
}

func (c *Console) cmdSoftReset(args []string) error {
	homeID, err := c.homeArg(args)
	if err != nil {
		return err
	}
	return accepted(c.manager.SoftReset(homeID), "soft reset")
}

func (c *Console) cmdStats(args []string) error {
	homeID, err := c.homeArg(args)
	if err != nil {
		return err
	}
	return accepted(c.manager.LogDriverStatistics(homeID), "driver statistics")
}

func (c *Console) cmdWatch(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	switch strings.ToLower(args[0]) {
	case "on":
		c.watching.Store(true)
	case "off":
		c.watching.Store(false)
	default:
		return errUsage
	}
	c.printf("Watching: %s\n", args[0])
	return nil
}

func (c *Console) cmdLogLevel(args []string) error {
	switch len(args) {
	case 0:
	case 1:
		if err := c.logger.SetLevel(args[0]); err != nil {
			return err
		}
	default:
		return errUsage
	}
	c.printf("Log level: %s\n", strings.ToLower(c.logger.Level().String()))
	return nil
}
