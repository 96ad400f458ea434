package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/datagit-project/datagit"
	"github.com/datagit-project/datagit/core"
	"github.com/datagit-project/datagit/library"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	mergeStrategy string
	mergeStash    bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge remote changes",
	Long: "Merge the remote-tracking branch into the local branch and the " +
		"record store. With --stash the stash is applied as uncommitted changes instead.",
	Args: cobra.NoArgs,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeStrategy, "strategy", "",
		"conflict strategy: keep-local or overwrite (default: fail on conflict)")
	mergeCmd.Flags().BoolVar(&mergeStash, "stash", false, "apply the stash instead of merging the remote branch")
	rootCmd.AddCommand(mergeCmd)
}

// fixedResolver resolves every conflict with one fixed outcome.
type fixedResolver core.ConflictResolution

func (r fixedResolver) Resolve(ref core.Reference, local, remote []byte) (core.Resolution, error) {
	return core.Resolution{Type: core.ConflictResolution(r)}, nil
}

func conflictResolver() (core.ConflictResolver, error) {
	switch mergeStrategy {
	case "":
		return nil, nil
	case "keep-local":
		return fixedResolver(core.KeepLocal), nil
	case "overwrite":
		return fixedResolver(core.OverwriteWithRemote), nil
	default:
		return nil, fmt.Errorf("unknown conflict strategy %q", mergeStrategy)
	}
}

// libraryResolver builds a resolver chain from the configured library
// pools: a local directory, an HTTPS repository, an S3 bucket.
func libraryResolver(ctx context.Context) (core.LibraryResolver, error) {
	var chain library.Chain

	if dir := viper.GetString("library.dir"); dir != "" {
		chain = append(chain, &library.DirPool{Dir: dir})
	}
	if url := viper.GetString("library.url"); url != "" {
		chain = append(chain, &library.HTTPPool{
			BaseURL: url,
			Token:   viper.GetString("library.token"),
		})
	}
	if bucket := viper.GetString("library.s3.bucket"); bucket != "" {
		pool, err := library.NewS3Pool(ctx, library.S3Config{
			Bucket:    bucket,
			Prefix:    viper.GetString("library.s3.prefix"),
			Region:    viper.GetString("library.s3.region"),
			AccessKey: viper.GetString("library.s3.access_key"),
			SecretKey: viper.GetString("library.s3.secret_key"),
			Endpoint:  viper.GetString("library.s3.endpoint"),
		})
		if err != nil {
			return nil, err
		}
		chain = append(chain, pool)
	}

	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

func runMerge(cmd *cobra.Command, args []string) (err error) {
	conflicts, err := conflictResolver()
	if err != nil {
		return err
	}
	libraries, err := libraryResolver(cmd.Context())
	if err != nil {
		return err
	}

	r, err := openRepo()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	changed, err := datagit.Merge(cmd.Context(), datagit.MergeOptions{
		Repo:       r,
		Store:      store,
		Committer:  committer(),
		Conflicts:  conflicts,
		Libraries:  libraries,
		ApplyStash: mergeStash,
	})
	if err != nil {
		return err
	}

	if changed {
		fmt.Fprintln(os.Stderr, "Merged remote changes")
	} else {
		fmt.Fprintln(os.Stderr, "Already up to date")
	}
	return nil
}
