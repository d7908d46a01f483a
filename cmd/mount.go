package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/database"
	"github.com/agentic-research/mmdb/internal/nfsmount"
)

var mountListOnly bool

var mountCmd = &cobra.Command{
	Use:   "mount [mountpoint]",
	Short: "Serve the database as a read-only NFS filesystem",
	Long: `Serve the database as a read-only NFS filesystem: metadata.json at the
root and one JSON file per routed network under /networks. Without
--list-only the OS mount helper is invoked on the given mountpoint, which
needs sudo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !mountListOnly && len(args) != 1 {
			return fmt.Errorf("mount needs a mountpoint unless --list-only is set")
		}

		// 1. Resolve and open the database, and index its networks. The
		// path is kept so SIGHUP can reopen it later.
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := cfg.Resolve(dbFlag)
		if err != nil {
			return err
		}
		r, err := database.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		fsys, err := nfsmount.NewDBFS(r)
		if err != nil {
			return err
		}

		// 2. Start the NFS server on an ephemeral port.
		srv, err := nfsmount.NewServer(fsys)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }()

		if mountListOnly {
			fmt.Printf("NFS server listening on localhost:%d\n", srv.Port())
			fmt.Printf("Mount it with:\n  sudo mount -t nfs -o port=%d,mountport=%d,vers=3,tcp,ro localhost:/ <mountpoint>\n",
				srv.Port(), srv.Port())
		} else {
			mountpoint := args[0]
			if err := nfsmount.Mount(srv.Port(), mountpoint); err != nil {
				return err
			}
			fmt.Printf("Mounted at %s (NFS port %d). Ctrl-C to unmount.\n", mountpoint, srv.Port())
			defer func() {
				if err := nfsmount.Unmount(mountpoint); err != nil {
					log.Printf("unmount: %v", err)
				}
			}()
		}

		// 3. Serve until interrupted. SIGHUP swaps in a fresh copy of the
		// database, for mounts that outlive a database update.
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		for sig := range sigc {
			if sig != syscall.SIGHUP {
				break
			}
			nr, err := database.Open(path)
			if err != nil {
				log.Printf("reload %s: %v", path, err)
				continue
			}
			old, err := fsys.Reload(nr)
			if err != nil {
				log.Printf("reload %s: %v", path, err)
				_ = nr.Close()
				continue
			}
			_ = old.Close()
			r = nr
			log.Printf("reloaded %s", path)
		}
		fmt.Println("\nShutting down.")
		return nil
	},
}

func init() {
	mountCmd.Flags().BoolVar(&mountListOnly, "list-only", false,
		"Start the NFS server and print the port without mounting")
	rootCmd.AddCommand(mountCmd)
}
