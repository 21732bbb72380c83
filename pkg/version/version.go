package version

import (
	"fmt"
	"runtime"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

// Set through -ldflags "-X github.com/go-strange/strange/pkg/version.Version=...".
var (
	Version   = "dev"
	GitBranch = ""
	GitCommit = ""
	BuildTime = ""
)

type Info struct {
	Version   string `json:"version"`
	GitBranch string `json:"gitBranch"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

func GetVersion() *Info {
	return &Info{
		Version:   Version,
		GitBranch: GitBranch,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (v *Info) String() string {
	return fmt.Sprintf("%s (%s, %s)", v.Version, v.GitCommit, v.Platform)
}

func (v *Info) JSON() ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(v, "", "  ")
}

// NewCmd returns the "version" subcommand shared by every binary.
func NewCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := GetVersion()
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), v.Version)
				return err
			}
			b, err := v.JSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print the version number only")
	return cmd
}
