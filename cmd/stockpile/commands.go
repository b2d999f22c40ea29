package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/stockpile"
	"github.com/unkn0wn-root/stockpile/codec"
	"github.com/unkn0wn-root/stockpile/internal/util"
	"github.com/unkn0wn-root/stockpile/store"
)

type openFunc func(ctx context.Context, configPath string) (*stockpile.Stockpile, *zap.Logger, error)

type cli struct {
	open       openFunc
	configPath string
	db         string

	sp  *stockpile.Stockpile
	log *zap.Logger
}

func newRootCmd(open openFunc) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "stockpile",
		Short:         "Inspect and invalidate stockpile cache entries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			sp, log, err := c.open(cmd.Context(), c.configPath)
			if err != nil {
				return err
			}
			c.sp, c.log = sp, log
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.sp == nil {
				return nil
			}
			err := c.sp.Close(cmd.Context())
			_ = c.log.Sync()
			return err
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML database file (default $STOCKPILE_CONFIGURATION_FILE)")
	root.PersistentFlags().StringVarP(&c.db, "db", "d", "", "database name (default: the configured default)")

	root.AddCommand(
		c.databasesCmd(),
		c.getCmd(),
		c.ttlCmd(),
		c.expireCmd(),
		c.renewCmd(),
		c.lockedCmd(),
	)
	return root
}

// dbName is the database commands act on, with the default resolved.
func (c *cli) dbName() string {
	if c.db == "" {
		return c.sp.Registry().Default()
	}
	return c.db
}

func (c *cli) databasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List configured databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := c.sp.Registry()
			for _, name := range reg.Names() {
				compressed, _ := reg.IsCompressionEnabled(name)
				marker := ""
				if name == reg.Default() {
					marker = " (default)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s compression=%t\n", name, marker, compressed)
			}
			return nil
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print a cached payload, decompressed when the database compresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := stockpile.NewCache(c.sp, stockpile.CacheOptions[[]byte]{Database: c.db, Codec: codec.Bytes{}})
			if err != nil {
				return err
			}
			v, ok, err := cc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%q not cached in %q", args[0], cc.Database())
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(v))
			return nil
		},
	}
}

func (c *cli) ttlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ttl KEY",
		Short: "Print the remaining time to live of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.sp.Registry().WithStore(c.db, func(st store.Store) error {
				ttl, ok, err := st.TTL(cmd.Context(), args[0])
				switch {
				case err != nil:
					return err
				case !ok:
					fmt.Fprintln(cmd.OutOrStdout(), "absent")
				case ttl == store.NoExpiry:
					fmt.Fprintln(cmd.OutOrStdout(), "no expiry")
				default:
					fmt.Fprintln(cmd.OutOrStdout(), ttl.Round(time.Millisecond))
				}
				return nil
			})
		},
	}
}

func (c *cli) expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire KEY",
		Short: "Expire a key immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existed, err := c.sp.ExpireCached(cmd.Context(), c.db, args[0])
			if err != nil {
				return err
			}
			c.log.Info("expired", zap.String("db", c.dbName()), zap.String("key", args[0]), zap.Bool("existed", existed))
			fmt.Fprintf(cmd.OutOrStdout(), "existed=%t\n", existed)
			return nil
		},
	}
}

func (c *cli) renewCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "renew KEY",
		Short: "Reset the time to live of a key without changing its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existed, err := c.sp.RenewCached(cmd.Context(), c.db, args[0], ttl)
			if err != nil {
				return err
			}
			c.log.Info("renewed", zap.String("db", c.dbName()), zap.String("key", args[0]), zap.Duration("ttl", ttl), zap.Bool("existed", existed))
			fmt.Fprintf(cmd.OutOrStdout(), "existed=%t\n", existed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", stockpile.DefaultTTL, "new time to live")
	return cmd
}

func (c *cli) lockedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locked KEY",
		Short: "Report whether a computation for KEY currently holds the lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lockKey := util.LockKey(args[0])
			return c.sp.Registry().WithStore(c.db, func(st store.Store) error {
				// one PTTL round trip: existence and expiry from the same reply
				ttl, held, err := st.TTL(cmd.Context(), lockKey)
				if err != nil {
					return err
				}
				if !held {
					fmt.Fprintln(cmd.OutOrStdout(), "unlocked")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "locked (expires in %s)\n", ttl.Round(time.Millisecond))
				return nil
			})
		},
	}
}
