package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Martificial-UK/trail/internal/integrity"
	"github.com/Martificial-UK/trail/internal/seglog"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

// newVerifyCommand constructs the `verify` subcommand. It checks every
// record's signature against the directory's key and fails on the first
// missing or invalid one.
func newVerifyCommand(lg logpkg.Logger) *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify record signatures",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir := resolveDir(cmd, cfg)
			signer, err := integrity.NewSigner(integrity.NewFileKeyProvider(dir), cfg.KeyName)
			if err != nil {
				return err
			}

			var checked, unsigned int
			var badSeq uint64
			scanErr := seglog.ScanDir(dir, lg, seglog.ScanOptions{}, func(rec seglog.Record) bool {
				checked++
				if rec.Signature == "" {
					unsigned++
					return true
				}
				if !signer.Verify(seglog.CanonicalBytes(rec), rec.Signature) {
					badSeq = rec.Sequence
					return false
				}
				return true
			})
			if scanErr != nil {
				return scanErr
			}
			if badSeq != 0 {
				return fmt.Errorf("signature mismatch at seq %d", badSeq)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified %d events (%d unsigned)\n", checked, unsigned)
			return nil
		},
	}
	return verifyCmd
}
