// Command respd runs the RESP key-value server: strings, lists, sorted
// sets, and streams, with blocking pops/reads, pub/sub, and MULTI/EXEC
// transactions, optionally seeded from an on-disk RDB snapshot at startup.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rkeydb/respd/internal/respd"
)

func main() {
	var cfg respd.Config

	root := &cobra.Command{
		Use:   "respd",
		Short: "An in-memory RESP key-value server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	root.Flags().IntVar(&cfg.Port, "port", 6379, "TCP port to listen on")
	root.Flags().StringVar(&cfg.RdbDir, "dir", "", "directory containing the RDB snapshot to load at startup")
	root.Flags().StringVar(&cfg.RdbFilename, "dbfilename", "", "RDB snapshot filename within --dir")
	root.Flags().StringVar(&cfg.ReplicaOf, "replicaof", "", "HOST PORT of a master to replicate from (accepted, not dialed)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg respd.Config) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	srv, err := respd.New(cfg, log)
	if err != nil {
		return err
	}

	log.WithField("port", cfg.Port).Info("respd listening")
	return srv.ListenAndServe()
}
