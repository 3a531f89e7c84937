// Command mtpfs mounts an MTP (Media Transfer Protocol) portable device as
// a filesystem, using bazil.org/fuse.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"github.com/spf13/cobra"

	"github.com/ardnew/mtpfs/pkg/fsview"
	"github.com/ardnew/mtpfs/pkg/mtplog"
	"github.com/ardnew/mtpfs/pkg/session"
	"github.com/ardnew/mtpfs/pkg/usbtransport"
)

var (
	version = "dev"

	deviceIndex int
	debugLog    bool
	jsonLog     bool
	listOnly    bool
	timeout     time.Duration

	iface         uint8
	bulkIn        uint8
	bulkOut       uint8
	interruptIn   uint8
	maxPacketSize int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mtpfs <mountpoint>",
		Short:   "Mount an MTP device as a filesystem",
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if listOnly {
				return cobra.MaximumNArgs(0)(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if listOnly {
				return runList()
			}
			return runMount(cmd.Context(), args[0])
		},
	}

	root.PersistentFlags().BoolVar(&debugLog, "debug", false, "lower log level to debug")
	root.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "emit structured JSON log records")
	root.PersistentFlags().DurationVar(&timeout, "timeout", usbtransport.DefaultTransferTimeout, "bulk/interrupt transfer timeout")

	root.Flags().BoolVar(&listOnly, "list", false, "enumerate candidate MTP devices and exit")
	root.Flags().IntVar(&deviceIndex, "device", 0, "index of the device to mount, per --list order")
	root.Flags().Uint8Var(&iface, "iface", 0, "MTP interface number")
	root.Flags().Uint8Var(&bulkIn, "bulk-in", 0x81, "bulk-in endpoint address")
	root.Flags().Uint8Var(&bulkOut, "bulk-out", 0x01, "bulk-out endpoint address")
	root.Flags().Uint8Var(&interruptIn, "interrupt-in", 0x82, "interrupt-in endpoint address")
	root.Flags().IntVar(&maxPacketSize, "max-packet-size", 512, "bulk endpoint wMaxPacketSize")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debugLog {
			mtplog.SetLevel(slog.LevelDebug)
		}
		if jsonLog {
			mtplog.SetFormat(mtplog.FormatJSON)
		}
	}

	root.AddCommand(newListCmd())
	return root
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Enumerate candidate MTP devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

func runList() error {
	devices, err := usbtransport.ListDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Println("no USB devices found")
		return nil
	}
	for i, d := range devices {
		fmt.Printf("%d: %04x:%04x serial=%q manufacturer=%q product=%q\n",
			i, d.VendorID, d.ProductID, d.Serial, d.Manufacturer, d.Product)
	}
	return nil
}

// runMount claims the indexed device's MTP interface, opens a session,
// builds the filesystem view, and serves it at mountPoint until a signal
// arrives or the FUSE connection ends, following the mount lifecycle of
// a traditional bazil.org/fuse command: Mount, Serve in a goroutine,
// select on completion/signal, then Unmount.
func runMount(ctx context.Context, mountPoint string) error {
	devices, err := usbtransport.ListDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if deviceIndex < 0 || deviceIndex >= len(devices) {
		return fmt.Errorf("device index %d out of range (found %d devices)", deviceIndex, len(devices))
	}
	target := devices[deviceIndex]

	transport, err := usbtransport.Open(target.VendorID, target.ProductID, target.Serial, iface, bulkIn, bulkOut, interruptIn, maxPacketSize)
	if err != nil {
		return fmt.Errorf("open transport: %w", err)
	}

	device := session.New(transport, target.VendorID, target.ProductID, target.Serial, target.Manufacturer, target.Product)
	device.SetTimeout(timeout)
	mtplog.Info(mtplog.ComponentCLI, "claimed device", "device", device.String())

	tree, err := fsview.New(ctx, device)
	if err != nil {
		_ = transport.Close()
		return fmt.Errorf("mount filesystem view: %w", err)
	}

	conn, err := fuse.Mount(mountPoint, fuse.FSName("mtpfs"))
	if err != nil {
		return fmt.Errorf("fuse mount: %w", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	doneServe := make(chan error, 1)
	go func() {
		doneServe <- fusefs.Serve(conn, fsview.NewFS(tree))
	}()

	select {
	case err := <-doneServe:
		if err != nil {
			mtplog.Error(mtplog.ComponentCLI, "fuse serve ended", "err", err)
		}
	case sig := <-sigc:
		mtplog.Info(mtplog.ComponentCLI, "received signal, unmounting", "signal", sig.String())
	}

	if err := fuse.Unmount(mountPoint); err != nil {
		mtplog.Warn(mtplog.ComponentCLI, "unmount failed", "err", err)
	}
	return conn.Close()
}
