// Command navview is a terminal viewer for a navigation map: it draws tiles,
// regions and portals, toggles doors and shows the route between two picked
// tiles.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"

	"roomnav/internal/mapdef"
	"roomnav/internal/mapgen"
	"roomnav/internal/nav"
)

func main() {
	var (
		mapFile string
		seed    string
	)
	flag.StringVar(&mapFile, "map", "", "map definition file (.yaml or .json); generated when empty")
	flag.StringVar(&seed, "seed", mapgen.DefaultSeed, "seed for the generated map")
	flag.Parse()

	navigator, err := loadNavigator(mapFile, seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load map: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("init screen: %v", err)
	}
	defer screen.Fini()

	v := newViewer(screen, navigator)
	v.draw()
	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if v.handleKey(ev) {
				return
			}
		case nil:
			return
		}
		v.draw()
	}
}

func loadNavigator(mapFile, seed string) (*nav.Navigator, error) {
	if mapFile != "" {
		def, err := mapdef.Load(mapFile)
		if err != nil {
			return nil, err
		}
		return def.Build(nav.DefaultConfig())
	}
	cfg := mapgen.DefaultConfig()
	cfg.Seed = seed
	cfg.PillarsPerRoom = 2
	res, err := mapgen.Generate(cfg)
	if err != nil {
		return nil, err
	}
	n := nav.New(nav.DefaultConfig())
	if err := n.Load(res.Layout); err != nil {
		return nil, err
	}
	return n, nil
}
