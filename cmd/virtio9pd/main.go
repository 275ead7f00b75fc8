// Command virtio9pd starts the virtio-9p driver core: it negotiates a
// 9P2000.L session over a transport, attaches the configured mount
// tag, and logs the handshake result. Device discovery, namespace
// entry, and scheme-socket wiring are external collaborators supplied
// by the host environment and are not part of this binary;
// --fake-transport lets the handshake be exercised end-to-end without
// a real virtio device.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hostfs/virtio9pd/p9"
	"github.com/hostfs/virtio9pd/p9proto"
	"github.com/hostfs/virtio9pd/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "virtio9pd",
		Short: "9P2000.L client engine for a virtio-9p host share",
		Long: `virtio9pd drives a single virtio-9p transport queue and
bridges it to a microkernel scheme adapter: version negotiation,
attach, and the handle table described in the driver's design live
here. This binary alone only runs the startup handshake and logs the
result; wiring a real scheme socket and a real virtio transport are
done by the host environment this driver is compiled into.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("log-level", "info", "logrus level: trace, debug, info, warn, error")
	flags.Uint32("msize", p9proto.DefaultMsize, "maximum 9P message size to advertise in Tversion")
	flags.String("mount-tag", "", "virtio-9p mount tag to attach (aname); empty attaches with an empty aname")
	flags.String("scheme-name", "", "scheme name to log as this driver's identity; derived from the mount tag if empty")
	flags.Bool("fake-transport", false, "use the in-memory fake transport instead of a real device (smoke test only)")
	bindFlags(v, flags)

	return cmd
}

// bindFlags binds every pflag to viper under the same name and to a
// VIRTIO9PD_-prefixed environment variable, so every flag can also be
// set from the daemon's environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvPrefix("VIRTIO9PD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

func run(ctx context.Context, v *viper.Viper) error {
	sessionID := uuid.New()
	log := logrus.NewEntry(logrus.StandardLogger())
	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("virtio9pd: invalid --log-level: %w", err)
	}
	logrus.SetLevel(level)
	log = log.WithField("session", sessionID.String())

	if !v.GetBool("fake-transport") {
		return fmt.Errorf("virtio9pd: no real virtio transport is wired into this binary; device discovery, PCI probing, and interrupt plumbing are host-specific collaborators supplied at integration time. Pass --fake-transport to exercise the handshake against the in-memory fake")
	}

	mountTag := v.GetString("mount-tag")

	tp := transport.NewFakeTransport(mountTag, loopbackHandler(mountTag))
	if err := tp.FinalizeFeatures(ctx); err != nil {
		return fmt.Errorf("virtio9pd: finalize features: %w", err)
	}
	queue, err := tp.SetupQueue(ctx)
	if err != nil {
		return fmt.Errorf("virtio9pd: setup queue: %w", err)
	}
	if err := tp.RunDevice(ctx); err != nil {
		return fmt.Errorf("virtio9pd: run device: %w", err)
	}

	// The tag the device itself advertises is authoritative; the
	// --mount-tag flag only seeds the fake's config window.
	mountTag = transport.ReadMountTag(tp)
	schemeName := v.GetString("scheme-name")
	if schemeName == "" {
		schemeName = deriveSchemeName(mountTag)
	}

	msize := v.GetUint32("msize")
	client := p9.New(queue, msize, log.WithField("component", "p9"))

	log.WithFields(logrus.Fields{
		"msize":       msize,
		"mount_tag":   mountTag,
		"scheme_name": schemeName,
	}).Info("virtio9pd: negotiating version")

	if err := client.Version(ctx); err != nil {
		return fmt.Errorf("virtio9pd: version negotiation failed: %w", err)
	}

	rootQid, err := client.Attach(ctx, mountTag)
	if err != nil {
		return fmt.Errorf("virtio9pd: attach failed: %w", err)
	}

	log.WithFields(logrus.Fields{
		"negotiated_msize": client.Msize(),
		"root_qid_path":    rootQid.Path(),
		"root_qid_type":    rootQid.Type(),
	}).Info("virtio9pd: attach complete, root bound to fid 0")

	return nil
}

// deriveSchemeName returns "9p.<tag>" for a non-empty device-advertised
// mount tag. An empty tag is tolerated and yields the fixed name
// "9p.virtio" instead of a bare "9p." prefix; no per-device identity is
// mixed in, so every device with an empty tag gets that same name.
func deriveSchemeName(mountTag string) string {
	if mountTag != "" {
		return "9p." + mountTag
	}
	return "9p.virtio"
}
