// Package simbuild turns a declarative topology description into live
// devices registered with a Simulator and a terminal facade. It is the
// only package that needs to know about every device kind at once.
package simbuild

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/netfabric/simfabric/internal/aghslog"
	"github.com/netfabric/simfabric/internal/aghtime"
	"github.com/netfabric/simfabric/internal/dhcpsvc"
	"github.com/netfabric/simfabric/internal/simaddr"
	"github.com/netfabric/simfabric/internal/simdevice"
	"github.com/netfabric/simfabric/internal/simiface"
	"github.com/netfabric/simfabric/internal/simnet"
	"github.com/netfabric/simfabric/internal/termsvc"
)

// Device kinds recognized in a topology file's "kind" field.
const (
	KindHost   = "host"
	KindSwitch = "switch"
	KindHub    = "hub"
	KindRouter = "router"
)

// Apply builds every device named in t and wires the links between them,
// registering each with both sim and svc. It is the caller's
// responsibility to have started from a freshly reset Simulator if a full
// topology replacement, rather than an incremental addition, is intended.
func Apply(logger *slog.Logger, sim *simnet.Simulator, svc *termsvc.Service, t *simnet.TopologyFile) (err error) {
	for _, d := range t.Devices {
		buildErr := buildDevice(logger, svc, d)
		if buildErr != nil {
			return fmt.Errorf("building device %q: %w", d.ID, buildErr)
		}
	}

	for _, l := range t.Links {
		connectErr := sim.Connect(l.DeviceA, l.PortA, l.DeviceB, l.PortB)
		if connectErr != nil {
			return fmt.Errorf("linking %s/%s to %s/%s: %w", l.DeviceA, l.PortA, l.DeviceB, l.PortB, connectErr)
		}
	}

	for _, d := range t.Devices {
		configErr := configureDevice(svc, d)
		if configErr != nil {
			return fmt.Errorf("configuring device %q: %w", d.ID, configErr)
		}
	}

	return nil
}

// configureDevice applies the recognized keys of d.Config after every
// device has been built and every link connected, so that a DHCP client
// enabled here can already reach a server elsewhere in the topology.
//
// Recognized keys: "interface" selects the port the remaining keys apply
// to, defaulting to d.Ports[0]. "ip"/"mask"/"gateway" configure a static
// address on that interface, applied before the DHCP keys below so a
// router keeps a usable address of its own even while serving DHCP.
// "dhcp_client" ("true") enables the DHCP client on the interface instead
// of (or in addition to) a static address. "dhcp_server" ("true") enables
// a DHCP server with "dhcp_pool_start", "dhcp_pool_end", "dhcp_mask", and
// an optional "dhcp_lease_time" duration string (for example "1h30m").
func configureDevice(svc *termsvc.Service, d simnet.TopologyDevice) (err error) {
	if len(d.Config) == 0 {
		return nil
	}

	iface := d.Config["interface"]
	if iface == "" && len(d.Ports) > 0 {
		iface = d.Ports[0]
	}

	if ipStr := d.Config["ip"]; ipStr != "" {
		err = configureStaticAddress(svc, d.ID, iface, d.Config)
		if err != nil {
			return err
		}
	}

	if d.Config["dhcp_client"] == "true" {
		err = svc.EnableDHCPClient(d.ID, iface)
		if err != nil {
			return err
		}
	}

	if d.Config["dhcp_server"] == "true" {
		conf, confErr := dhcpServerConfigFrom(d.Config)
		if confErr != nil {
			return confErr
		}

		err = svc.EnableDHCPServer(d.ID, iface, conf)
		if err != nil {
			return err
		}
	}

	return nil
}

// configureStaticAddress assigns a static IP/mask/gateway to a device's
// interface from its config map.
func configureStaticAddress(svc *termsvc.Service, deviceID, iface string, config map[string]string) (err error) {
	ip, err := simaddr.ParseIPAddress(config["ip"])
	if err != nil {
		return fmt.Errorf("parsing ip: %w", err)
	}

	prefixLen, err := strconv.Atoi(config["mask"])
	if err != nil {
		return fmt.Errorf("parsing mask: %w", err)
	}

	mask, err := simaddr.NewSubnetMaskCIDR(prefixLen)
	if err != nil {
		return fmt.Errorf("building mask: %w", err)
	}

	var gateway simaddr.IPAddress
	if gw := config["gateway"]; gw != "" {
		gateway, err = simaddr.ParseIPAddress(gw)
		if err != nil {
			return fmt.Errorf("parsing gateway: %w", err)
		}
	}

	return svc.ConfigureInterface(deviceID, iface, ip, mask, gateway)
}

// dhcpServerConfigFrom builds a [dhcpsvc.ServerConfig] out of a topology
// device's config map.
func dhcpServerConfigFrom(config map[string]string) (conf *dhcpsvc.ServerConfig, err error) {
	start, err := simaddr.ParseIPAddress(config["dhcp_pool_start"])
	if err != nil {
		return nil, fmt.Errorf("parsing dhcp_pool_start: %w", err)
	}

	end, err := simaddr.ParseIPAddress(config["dhcp_pool_end"])
	if err != nil {
		return nil, fmt.Errorf("parsing dhcp_pool_end: %w", err)
	}

	prefixLen, err := strconv.Atoi(config["dhcp_mask"])
	if err != nil {
		return nil, fmt.Errorf("parsing dhcp_mask: %w", err)
	}

	mask, err := simaddr.NewSubnetMaskCIDR(prefixLen)
	if err != nil {
		return nil, fmt.Errorf("building dhcp mask: %w", err)
	}

	conf = &dhcpsvc.ServerConfig{
		PoolStart: start,
		PoolEnd:   end,
		Mask:      mask,
	}

	if router := config["dhcp_router"]; router != "" {
		conf.Router, err = simaddr.ParseIPAddress(router)
		if err != nil {
			return nil, fmt.Errorf("parsing dhcp_router: %w", err)
		}
	}

	if leaseStr := config["dhcp_lease_time"]; leaseStr != "" {
		var lease aghtime.Duration

		err = lease.UnmarshalText([]byte(leaseStr))
		if err != nil {
			return nil, fmt.Errorf("parsing dhcp_lease_time: %w", err)
		}

		conf.LeaseTime = lease.Duration
	}

	return conf, nil
}

func buildDevice(logger *slog.Logger, svc *termsvc.Service, d simnet.TopologyDevice) (err error) {
	logger = aghslog.NewForDevice(logger, d.Kind, d.ID)

	switch d.Kind {
	case KindHost:
		h := simdevice.NewHost(d.ID, logger)
		for _, port := range d.Ports {
			h.AddInterface(port, simiface.New(port))
		}

		return svc.RegisterHost(h)
	case KindSwitch:
		sw := simdevice.NewSwitch(d.ID, logger)
		for _, port := range d.Ports {
			sw.AddPort(port, simiface.New(port))
		}

		return svc.RegisterSwitch(sw)
	case KindHub:
		hub := simdevice.NewHub(d.ID, logger)
		for _, port := range d.Ports {
			hub.AddPort(port, simiface.New(port))
		}

		return svc.RegisterSwitch(hub)
	case KindRouter:
		r := simdevice.NewRouter(d.ID, logger)
		for _, port := range d.Ports {
			r.AddInterface(port, simiface.New(port))
		}

		return svc.RegisterRouter(r)
	default:
		return fmt.Errorf("unknown device kind %q", d.Kind)
	}
}
