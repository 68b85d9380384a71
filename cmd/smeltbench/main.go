// Command smeltbench measures collective latency on the local machine.
//
//	smeltbench -n 16 -op barrier -rounds 100000
//	smeltbench -config machine.json -op broadcast
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/smelt"
)

func main() {
	cfgPath := flag.String("config", "", "JSON machine configuration; overrides -n")
	n := flag.Int("n", runtime.NumCPU(), "participants in a binary tree")
	rounds := flag.Int("rounds", 10000, "operations per participant")
	op := flag.String("op", "barrier", "barrier, broadcast, reduce, reduceall or dissem")
	slots := flag.Int("slots", smelt.DefaultQueueSlots, "ring capacity")
	budget := flag.Int("spin", 0, "spin budget per wait, 0 = unbounded")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(log, *cfgPath, *n, *rounds, *op, *slots, *budget); err != nil {
		log.Error("smeltbench", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, cfgPath string, n, rounds int, op string, slots, budget int) error {
	cfg := smelt.DefaultConfig()
	var topo *smelt.Topology
	var err error
	if cfgPath != "" {
		if cfg, err = smelt.LoadConfig(cfgPath); err != nil {
			return err
		}
		if topo, err = cfg.Topology(); err != nil {
			return err
		}
	} else {
		cfg.QueueSlots = slots
		cfg.MaxNodes = max(cfg.MaxNodes, n)
		if topo, err = smelt.BinaryTopology(n); err != nil {
			return err
		}
	}
	if budget > 0 {
		cfg.SpinBudget = budget
	}
	cfg.Logger = log

	if op == "dissem" {
		return benchDissemination(topo.NumNodes(), rounds, cfg)
	}

	c, err := smelt.CreateWithConfig(topo, cfg)
	if err != nil {
		return err
	}
	defer c.Destroy()

	body, err := collective(op)
	if err != nil {
		return err
	}
	start := time.Now()
	err = smelt.Run(c, func(nd *smelt.Node) error {
		msg, err := smelt.NewMessage(8)
		if err != nil {
			return err
		}
		for i := range rounds {
			if err := body(nd, msg, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	report(op, c.NumNodes(), topo.Depth(), rounds, time.Since(start))
	return nil
}

func sum(dst, src *smelt.Message) {
	a := binary.LittleEndian.Uint64(dst.Bytes())
	b := binary.LittleEndian.Uint64(src.Bytes())
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], a+b)
	dst.Write(out[:])
}

func collective(op string) (func(*smelt.Node, *smelt.Message, int) error, error) {
	switch op {
	case "barrier":
		return func(nd *smelt.Node, _ *smelt.Message, _ int) error {
			return nd.Wait()
		}, nil
	case "broadcast":
		return func(nd *smelt.Node, msg *smelt.Message, i int) error {
			if nd.IsRoot() {
				var p [8]byte
				binary.LittleEndian.PutUint64(p[:], uint64(i))
				msg.Write(p[:])
				return nd.Broadcast(msg)
			}
			return nd.Receive(msg)
		}, nil
	case "reduce", "reduceall":
		all := op == "reduceall"
		return func(nd *smelt.Node, msg *smelt.Message, _ int) error {
			var p [8]byte
			binary.LittleEndian.PutUint64(p[:], 1)
			msg.Write(p[:])
			if all {
				return nd.ReduceAll(msg, sum)
			}
			return nd.Reduce(msg, sum)
		}, nil
	default:
		return nil, fmt.Errorf("unknown op %q", op)
	}
}

func benchDissemination(n, rounds int, cfg smelt.Config) error {
	d, err := smelt.NewDisseminationBarrier(n, func(c *smelt.Config) { *c = cfg })
	if err != nil {
		return err
	}
	defer d.Destroy()

	start := time.Now()
	var g errgroup.Group
	for i := range n {
		p, err := d.Node(i)
		if err != nil {
			return err
		}
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			for range rounds {
				if err := p.Wait(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	report("dissem", n, d.Rounds(), rounds, time.Since(start))
	return nil
}

func report(op string, n, depth, rounds int, elapsed time.Duration) {
	fmt.Printf("%-10s nodes=%-4d depth=%-3d rounds=%-8d total=%-12v per-op=%v\n",
		op, n, depth, rounds, elapsed.Round(time.Microsecond), elapsed/time.Duration(max(rounds, 1)))
}
