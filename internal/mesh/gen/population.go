// Package gen provides initial-population strategies for a mesh: which
// blocks of the uniform starting level exist before any refinement.
package gen

import "github.com/OCharnyshevich/amr-mesh/internal/mesh"

// Full keeps every block.
func Full() mesh.Population {
	return func(mesh.Coord) bool { return true }
}

// Random omits each block independently with probability omit. The decision
// depends only on seed and the block's coordinates, not on visiting order.
func Random(seed int64, omit float64) mesh.Population {
	return func(c mesh.Coord) bool {
		h := mix(uint64(seed))
		h = mix(h ^ uint64(c.Level))
		h = mix(h ^ uint64(c.I))
		h = mix(h ^ uint64(c.J))
		h = mix(h ^ uint64(c.K))
		u := float64(h>>11) / (1 << 53)
		return u >= omit
	}
}

// Noise keeps blocks whose centre samples the seeded simplex field above
// threshold. scale is the field frequency per block.
func Noise(seed int64, scale, threshold float64) mesh.Population {
	field := NewField(seed)
	return func(c mesh.Coord) bool {
		x := (float64(c.I) + 0.5) * scale
		y := (float64(c.J) + 0.5) * scale
		z := (float64(c.K) + 0.5) * scale
		return field.Octaves(x, y, z, 3, 0.5) > threshold
	}
}

// Sphere keeps blocks whose centre lies inside the ball at centre with the
// given radius. Both are fractions of the domain extent, so base is the
// level-0 block count needed to place blocks of any level.
func Sphere(base [3]uint32, centre [3]float64, radius float64) mesh.Population {
	return func(c mesh.Coord) bool {
		pos := [3]uint32{c.I, c.J, c.K}
		var d2 float64
		for a := range 3 {
			n := float64(uint64(base[a]) << c.Level)
			d := (float64(pos[a])+0.5)/n - centre[a]
			d2 += d * d
		}
		return d2 <= radius*radius
	}
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
