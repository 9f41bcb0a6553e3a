// Command hydroflow runs the tiled hydrological terrain-analysis pipeline
// against raster files on disk: breach, fill, flow_direction, accumulation,
// basins, streams, and flow_length, each as its own subcommand.
package main

import "github.com/jblindsay/hydroflow/internal/cli"

func main() {
	cli.Execute()
}
