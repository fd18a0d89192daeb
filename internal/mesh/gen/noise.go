package gen

// Simplex noise after Ken Perlin's construction. Values lie in [-1, 1].

var grad3 = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// Field is a seeded 3D simplex noise field.
type Field struct {
	perm [512]int
}

// NewField builds the permutation table for seed.
func NewField(seed int64) *Field {
	n := &Field{}

	var p [256]int
	for i := range p {
		p[i] = i
	}
	s := seed
	for i := 255; i > 0; i-- {
		s = s*6364136223846793005 + 1442695040888963407
		j := int((s>>33)&0x7FFFFFFF) % (i + 1)
		p[i], p[j] = p[j], p[i]
	}
	for i := range n.perm {
		n.perm[i] = p[i&255]
	}
	return n
}

// At samples the field at (x,y,z).
func (n *Field) At(x, y, z float64) float64 {
	const (
		f3 = 1.0 / 3.0
		g3 = 1.0 / 6.0
	)

	s := (x + y + z) * f3
	i, j, k := floor(x+s), floor(y+s), floor(z+s)

	t := float64(i+j+k) * g3
	x0 := x - (float64(i) - t)
	y0 := y - (float64(j) - t)
	z0 := z - (float64(k) - t)

	// Pick the simplex by ordering the fractional parts.
	var i1, j1, k1, i2, j2, k2 int
	switch {
	case x0 >= y0 && y0 >= z0:
		i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 1, 0
	case x0 >= y0 && x0 >= z0:
		i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 0, 1
	case x0 >= y0:
		i1, j1, k1, i2, j2, k2 = 0, 0, 1, 1, 0, 1
	case y0 < z0:
		i1, j1, k1, i2, j2, k2 = 0, 0, 1, 0, 1, 1
	case x0 < z0:
		i1, j1, k1, i2, j2, k2 = 0, 1, 0, 0, 1, 1
	default:
		i1, j1, k1, i2, j2, k2 = 0, 1, 0, 1, 1, 0
	}

	corners := [4][3]float64{
		{x0, y0, z0},
		{x0 - float64(i1) + g3, y0 - float64(j1) + g3, z0 - float64(k1) + g3},
		{x0 - float64(i2) + 2*g3, y0 - float64(j2) + 2*g3, z0 - float64(k2) + 2*g3},
		{x0 - 1 + 3*g3, y0 - 1 + 3*g3, z0 - 1 + 3*g3},
	}
	ii, jj, kk := i&255, j&255, k&255
	grads := [4]int{
		n.perm[ii+n.perm[jj+n.perm[kk]]] % 12,
		n.perm[ii+i1+n.perm[jj+j1+n.perm[kk+k1]]] % 12,
		n.perm[ii+i2+n.perm[jj+j2+n.perm[kk+k2]]] % 12,
		n.perm[ii+1+n.perm[jj+1+n.perm[kk+1]]] % 12,
	}

	var sum float64
	for c, d := range corners {
		t := 0.6 - d[0]*d[0] - d[1]*d[1] - d[2]*d[2]
		if t < 0 {
			continue
		}
		t *= t
		g := grad3[grads[c]]
		sum += t * t * (g[0]*d[0] + g[1]*d[1] + g[2]*d[2])
	}
	return 32 * sum
}

// Octaves layers octaves of the field with halving amplitude scaled by
// persistence. The result is normalised back into [-1, 1].
func (n *Field) Octaves(x, y, z float64, octaves int, persistence float64) float64 {
	var total, maxVal float64
	frequency, amplitude := 1.0, 1.0
	for range octaves {
		total += n.At(x*frequency, y*frequency, z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

func floor(x float64) int {
	xi := int(x)
	if x < float64(xi) {
		return xi - 1
	}
	return xi
}
