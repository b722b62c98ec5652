package actuator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
)

var (
	ErrUnknownPoint = errors.New("unknown reference point")
	ErrUnknownCell  = errors.New("unknown grid cell")
	ErrBadGridMap   = errors.New("invalid grid map")
)

// HomePoint is the name accepted by MoveToNamedPoint for the arm's home pose.
const HomePoint = "home"

// Point is an arm pose in millimetres, R is the end effector rotation.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
	R float64 `yaml:"r"`
}

func (p Point) Lifted(dz float64) Point {
	p.Z += dz
	return p
}

// lattice places named points on the 4x4 grid-line intersections of the
// drawing area, as (index along X, index along Y).
var lattice = map[string][2]int{
	"A1": {0, 0}, "A2": {0, 3}, "A3": {3, 0}, "A4": {3, 3},

	"S1": {0, 1}, "S2": {3, 1}, "S3": {0, 2}, "S4": {3, 2},
	"S5": {1, 0}, "S6": {1, 3}, "S7": {2, 0}, "S8": {2, 3},

	"SM1": {1, 1}, "SM2": {1, 2}, "SM3": {2, 1}, "SM4": {2, 2},
}

// GridMap names the four corner points of each cell, ordered
// (low X, low Y), (low X, high Y), (high X, low Y), (high X, high Y).
type GridMap map[string][4]string

// CellName is the grid map key of a zero-based board cell.
func CellName(p entity.Position) string {
	return fmt.Sprintf("G%d%d", p.Row+1, p.Col+1)
}

func DefaultGridMap() GridMap {
	names := make(map[[2]int]string, len(lattice))
	for name, at := range lattice {
		names[at] = name
	}

	gridMap := make(GridMap, entity.Size*entity.Size)
	for _, p := range entity.AllPositions {
		gridMap[CellName(p)] = [4]string{
			names[[2]int{p.Row, p.Col}],
			names[[2]int{p.Row, p.Col + 1}],
			names[[2]int{p.Row + 1, p.Col}],
			names[[2]int{p.Row + 1, p.Col + 1}],
		}
	}

	return gridMap
}

// LoadGridMap reads a YAML grid map such as:
//
//	G11: [A1, S1, S5, SM1]
func LoadGridMap(path string) (GridMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid map: %w", err)
	}

	var gridMap GridMap
	if err = yaml.Unmarshal(raw, &gridMap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadGridMap, err)
	}

	return gridMap, nil
}

type Geometry struct {
	Origin   Point
	CellSize float64
	// Offset insets cell corners so strokes stay off the grid lines.
	Offset float64
	// Lift is the pen-up height above the paper.
	Lift float64
	Park Point
}

// Calibration owns the named reference points and per-cell corner quads.
type Calibration struct {
	Geometry
	points map[string]Point
	cells  map[string][4]Point
}

// NewCalibration generates reference points from geometry and derives cell
// corners from gridMap. Cells naming unknown points are skipped and reported.
func NewCalibration(geometry Geometry, gridMap GridMap) (*Calibration, []error) {
	calibration := &Calibration{
		Geometry: geometry,
		points:   make(map[string]Point, 2*len(lattice)),
		cells:    make(map[string][4]Point, 2*len(gridMap)),
	}

	for name, at := range lattice {
		point := Point{
			X: geometry.Origin.X + float64(at[0])*geometry.CellSize,
			Y: geometry.Origin.Y + float64(at[1])*geometry.CellSize,
			Z: geometry.Origin.Z,
			R: geometry.Origin.R,
		}
		calibration.points[name] = point

		if name[0] == 'S' && name[1] != 'M' {
			calibration.points["SI"+name[1:]] = point.Lifted(geometry.Lift)
		}
	}

	var problems []error
	for cell, keys := range gridMap {
		var corners [4]Point
		missing := false
		for i, key := range keys {
			point, ok := calibration.points[key]
			if !ok {
				problems = append(problems, fmt.Errorf("%w: %s in cell %s", ErrUnknownPoint, key, cell))
				missing = true
				break
			}
			corners[i] = point
		}
		if missing {
			continue
		}

		off := geometry.Offset
		corners[0].X, corners[0].Y = corners[0].X+off, corners[0].Y+off
		corners[1].X, corners[1].Y = corners[1].X+off, corners[1].Y-off
		corners[2].X, corners[2].Y = corners[2].X-off, corners[2].Y+off
		corners[3].X, corners[3].Y = corners[3].X-off, corners[3].Y-off

		var lifted [4]Point
		for i, corner := range corners {
			lifted[i] = corner.Lifted(geometry.Lift)
		}

		calibration.cells[cell] = corners
		calibration.cells[cell+"I"] = lifted
	}

	return calibration, problems
}

func (that *Calibration) Point(name string) (Point, error) {
	point, ok := that.points[name]
	if !ok {
		return Point{}, fmt.Errorf("%w: %s", ErrUnknownPoint, name)
	}
	return point, nil
}

// Cell returns the pen-down and pen-up corners of a board cell.
func (that *Calibration) Cell(p entity.Position) ([4]Point, [4]Point, error) {
	name := CellName(p)

	down, ok := that.cells[name]
	if !ok {
		return [4]Point{}, [4]Point{}, fmt.Errorf("%w: %s", ErrUnknownCell, name)
	}
	up, ok := that.cells[name+"I"]
	if !ok {
		return [4]Point{}, [4]Point{}, fmt.Errorf("%w: %sI", ErrUnknownCell, name)
	}

	return down, up, nil
}
