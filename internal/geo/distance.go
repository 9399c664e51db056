// internal/geo/distance.go

package geo

import "math"

// WGS-84 ellipsoid parameters
const (
	equatorialRadius = 6378137.0         // meters
	flattening       = 1 / 298.257223563 // ellipsoid flattening
)

const (
	distanceMaxIterations = 55
	distanceTolerance     = 1e-12 // radians
)

// Point is a lat/lon coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance solves the inverse geodesic problem between two points using
// Vincenty's formulae on the WGS-84 ellipsoid and returns the distance in
// meters. Iteration stops on convergence below distanceTolerance or after
// distanceMaxIterations, whichever comes first; on non-convergence the last
// iterate is used. Identical points short-circuit to 0.
func Distance(p1, p2 Point) float64 {
	if p1 == p2 {
		return 0.0
	}

	a := equatorialRadius
	f := flattening
	b := (1 - f) * a

	u1 := math.Atan((1 - f) * math.Tan(p1.Lat*math.Pi/180))
	u2 := math.Atan((1 - f) * math.Tan(p2.Lat*math.Pi/180))

	l := (p2.Lon - p1.Lon) * math.Pi / 180
	lambda := l

	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	var (
		sinSigma, cosSigma float64
		sigma              float64
		cosSqAlpha         float64
		cos2SigmaM         float64
	)

	for i := 0; i < distanceMaxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Sqrt(math.Pow(cosU2*sinLambda, 2) +
			math.Pow(cosU1*sinU2-sinU1*cosU2*cosLambda, 2))
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)

		sinAlpha := (cosU1 * cosU2 * sinLambda) / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		cos2SigmaM = cosSigma - (2*sinU1*sinU2)/cosSqAlpha

		c := (f / 16) * cosSqAlpha * (4 + f*(4-3*cosSqAlpha))
		lambdaPrev := lambda
		lambda = l + (1-c)*f*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambdaPrev-lambda) <= distanceTolerance {
			break
		}
	}

	uSq := cosSqAlpha * ((a*a - b*b) / (b * b))
	aTerm := 1 + (uSq/16384)*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bTerm := (uSq / 1024) * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bTerm * sinSigma * (cos2SigmaM + 0.25*bTerm*
		(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			(1.0/6.0)*bTerm*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return b * aTerm * (sigma - deltaSigma)
}
