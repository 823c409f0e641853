// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"strconv"

	"github.com/bassosimone/replica"
	"github.com/bassosimone/runtimex"
	"github.com/caarlos0/env/v11"
)

var (
	// args contains the command line arguments (overridable in tests).
	args = os.Args

	// output is the writer for the simulation output (overridable in tests).
	output io.Writer = os.Stdout
)

// farEnd receives the replicas at the bottom of the stack and optionally
// echoes one packet back up for each original.
type farEnd struct {
	copies map[uint64]int
	echo   bool
	logger *slog.Logger
	pool   *replica.Pool
	sched  *replica.Scheduler
	stage  replica.PacketStage
}

// receive is the [replica.StageFunc] receiving the replicas.
func (fe *farEnd) receive(pkt *replica.Packet) {
	// 1. parse and account for the replica
	dgram := runtimex.PanicOnError1(replica.ParseUDPv4(pkt.Payload()))
	fe.copies[pkt.UID]++
	fe.logger.Debug(
		"replica delivered",
		slog.Uint64("uid", pkt.UID),
		slog.Int("copy", fe.copies[pkt.UID]),
		slog.Float64("t", fe.sched.Now()),
		slog.String("payload", string(dgram.Payload)),
	)
	fe.pool.Release(pkt)

	// 2. echo the first copy back up through the stage
	if !fe.echo || fe.copies[pkt.UID] != 1 {
		return
	}
	reply := runtimex.PanicOnError1(replica.BuildUDPv4(&replica.UDPv4Datagram{
		Src:     dgram.Dst,
		Dst:     dgram.Src,
		ID:      dgram.ID,
		Payload: dgram.Payload,
	}))
	fe.stage.Receive(fe.pool.NewPacket(pkt.UID, replica.DirectionUp, nil, reply))
}

// config contains the simulation settings. Environment variables provide
// the defaults and command line flags override them.
type config struct {
	Echo        bool    `env:"REPLICA_ECHO" envDefault:"false"`
	Interval    float64 `env:"REPLICA_INTERVAL" envDefault:"1.0"`
	Packets     int     `env:"REPLICA_PACKETS" envDefault:"4"`
	PCAPFile    string  `env:"REPLICA_PCAP_FILE"`
	PCAPSnaplen int     `env:"REPLICA_PCAP_SNAPLEN" envDefault:"1500"`
	Replicas    int     `env:"REPLICA_REPLICAS" envDefault:"1"`
	Spacing     float64 `env:"REPLICA_SPACING" envDefault:"0.5"`
	Verbose     bool    `env:"REPLICA_VERBOSE" envDefault:"false"`
}

func main() {
	// 1. load the defaults from the environment
	cfg := &config{}
	runtimex.PanicOnError0(env.Parse(cfg))

	// 2. create command line parser and add flags to parse
	fset := flag.NewFlagSet("replicate", flag.ExitOnError)
	fset.BoolVar(&cfg.Echo, "echo", cfg.Echo, "Echo each packet back up through the stage.")
	fset.Float64Var(&cfg.Interval, "interval", cfg.Interval, "Virtual time between packets.")
	fset.IntVar(&cfg.Packets, "packets", cfg.Packets, "Number of packets to send down.")
	fset.StringVar(&cfg.PCAPFile, "pcap-file", cfg.PCAPFile, "Write PCAP of delivered replicas at the given file.")
	fset.IntVar(&cfg.PCAPSnaplen, "pcap-snaplen", cfg.PCAPSnaplen, "PCAP snapshot length in bytes.")
	fset.IntVar(&cfg.Replicas, "replicas", cfg.Replicas, "Number of replicas per packet.")
	fset.Float64Var(&cfg.Spacing, "spacing", cfg.Spacing, "Virtual time between replicas.")
	fset.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log each replica.")

	// 3. parse command line
	runtimex.PanicOnError0(fset.Parse(args[1:]))

	// 4. create the logger
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))

	// 5. create the registry and the simulation infrastructure
	registry := replica.NewRegistry()
	runtimex.PanicOnError0(replica.RegisterReplicator(registry))
	sched := replica.NewScheduler()
	pool := replica.NewPool()
	dropper := replica.NewDropCounter(pool, logger)

	// 6. optionally capture the delivered replicas
	var linkOptions []replica.LinkOption
	var trace *replica.PCAPTrace
	if cfg.PCAPFile != "" {
		filep := runtimex.PanicOnError1(os.Create(cfg.PCAPFile))
		trace = replica.NewPCAPTrace(filep, uint16(cfg.PCAPSnaplen))
		linkOptions = append(linkOptions, replica.LinkOptionPCAPTrace(trace))
	}

	// 7. create the far end and the stage
	fe := &farEnd{
		copies: make(map[uint64]int),
		echo:   cfg.Echo,
		logger: logger,
		pool:   pool,
		sched:  sched,
	}
	var echoed int
	stage := runtimex.PanicOnError1(registry.New(replica.ReplicatorName, replica.StageDeps{
		Allocator: pool,
		Upper: replica.StageFunc(func(pkt *replica.Packet) {
			echoed++
			pool.Release(pkt)
		}),
		Lower:   replica.NewLink(sched, replica.StageFunc(fe.receive), linkOptions...),
		Dropper: dropper,
		Logger:  logger,
	}))
	fe.stage = stage

	// 8. configure the stage using its control interface
	runtimex.PanicOnError1(stage.Command([]string{"setreplicas", strconv.Itoa(cfg.Replicas)}))
	runtimex.PanicOnError1(stage.Command([]string{"setspacing", strconv.FormatFloat(cfg.Spacing, 'g', -1, 64)}))

	// 9. schedule the packets to send down
	src := netip.MustParseAddrPort("10.0.0.1:40000")
	dst := netip.MustParseAddrPort("10.0.0.2:40001")
	for idx := 0; idx < cfg.Packets; idx++ {
		uid := uint64(idx + 1)
		sched.Schedule(cfg.Interval*float64(idx), func() {
			raw := runtimex.PanicOnError1(replica.BuildUDPv4(&replica.UDPv4Datagram{
				Src:     src,
				Dst:     dst,
				ID:      uint16(uid),
				Payload: []byte(fmt.Sprintf("packet %d", uid)),
			}))
			stage.Receive(pool.NewPacket(uid, replica.DirectionDown, nil, raw))
		})
	}

	// 10. run the simulation to completion
	sched.Run()

	// 11. flush the capture
	if trace != nil {
		runtimex.PanicOnError0(trace.Close())
	}

	// 12. print the summary
	var delivered int
	for _, count := range fe.copies {
		delivered += count
	}
	fmt.Fprintf(output, "replicas=%s spacing=%s\n",
		runtimex.PanicOnError1(stage.Command([]string{"getreplicas"})),
		runtimex.PanicOnError1(stage.Command([]string{"getspacing"})))
	fmt.Fprintf(output, "sent=%d delivered=%d echoed=%d dropped=%d live=%d t=%g\n",
		cfg.Packets, delivered, echoed, dropper.Total(), pool.Live(), sched.Now())
}
