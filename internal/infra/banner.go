package infra

import "fmt"

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner with the target table.
func PrintBanner(cfg *Config) {
	color := ColorGreen
	if cfg.Server.AuthToken == "" {
		color = ColorYellow
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#               🎲 Sic Bo Table Client                    #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   TABLE:   %-36s #%s\n", color, cfg.Server.TableID, ColorReset)
	fmt.Printf("%s#   SERVER:  %-36s #%s\n", color, cfg.Server.WSURL, ColorReset)
	fmt.Printf("%s#   VERSION: %-36s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)

	if cfg.Server.AuthToken == "" {
		fmt.Printf("%s#   ⚠️  NO AUTH TOKEN SET - JOIN WILL BE REJECTED         #%s\n", ColorYellow, ColorReset)
	}

	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
