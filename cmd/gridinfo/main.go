// Package main provides gridinfo, a small inspection tool printing the grid
// geometry of a NetCDF file: shape, coordinate convention, corner bounds and
// the inset footprint ring.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.climsuite.io/gridval/internal/adapter/store/netcdf"
	"go.climsuite.io/gridval/internal/regrid"
)

func main() {
	file := flag.String("file", "", "NetCDF file to inspect (required)")
	margin := flag.Int("margin", 15, "Grid-point inset for the footprint ring")
	corners := flag.Bool("corners", false, "Compute and summarize cell corner arrays")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	g, err := netcdf.ReadGrid(*file)
	if err != nil {
		log.Fatalf("%v", err)
	}
	ny, nx := g.Shape()

	convention := "curvilinear (2D coordinate arrays)"
	if g.Rectilinear() {
		convention = "rectilinear (1D coordinate axes)"
	}
	fmt.Printf("File: %s\n", *file)
	fmt.Printf("Shape: %d x %d (y, x)\n", ny, nx)
	fmt.Printf("Convention: %s\n", convention)

	lon2, lat2 := g.Centers2D()
	fmt.Printf("Longitude range: %.4f .. %.4f\n", lon2.Elements[0], lon2.Elements[len(lon2.Elements)-1])
	fmt.Printf("Latitude range:  %.4f .. %.4f\n", lat2.Elements[0], lat2.Elements[len(lat2.Elements)-1])

	if *corners {
		lonB, latB, err := regrid.CellCorners(lon2, lat2)
		if err != nil {
			log.Fatalf("cell corners: %v", err)
		}
		fmt.Printf("Corner arrays: %d x %d\n", lonB.Shape[0], lonB.Shape[1])
		fmt.Printf("Corner lon range: %.4f .. %.4f\n",
			lonB.Elements[0], lonB.Elements[len(lonB.Elements)-1])
		fmt.Printf("Corner lat range: %.4f .. %.4f\n",
			latB.Elements[0], latB.Elements[len(latB.Elements)-1])
	}

	ring, err := regrid.DomainRing(lon2, lat2, *margin)
	if err != nil {
		fmt.Printf("Footprint ring (margin %d): not available: %v\n", *margin, err)
		return
	}
	fmt.Printf("Footprint ring (margin %d): %d vertices\n", *margin, len(ring))
	for i, p := range ring {
		if i >= 4 {
			fmt.Printf("  ... %d more\n", len(ring)-4)
			break
		}
		fmt.Printf("  (%.4f, %.4f)\n", p.X, p.Y)
	}
}
