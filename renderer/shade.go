package renderer

import (
	"image"
	"math"

	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/systems"
)

// Surface reconstruction constants.
const (
	IsoLevel    = 1.52
	isoSoftness = 0.34
	edgeFeather = 0.14
	normalScale = 1.05

	transparentAlpha = 0.001
)

// Fixed room colours on the 0..255 scale.
var (
	envSky    = [3]float64{108, 120, 144}
	envGround = [3]float64{22, 26, 34}
	roomWhite = [3]float64{248, 250, 255}
)

// ShadeParams are the lighting and material controls. Values are clamped
// when a Lighting is built from them.
type ShadeParams struct {
	Quality           float64
	Ambient           float64
	Occlusion         float64
	LightPower        float64
	SideLight         float64
	EnvLight          float64
	OffsetX, OffsetY  float64
	Exposure          float64
	Reflectivity      float64
	Sharpness         float64
	DepthBoost        float64
	Clarity           float64
	ImpactHighlights  float64
	Iridescence       float64
	Tint              float64
	FluidRGB          [3]float64
	LightRGB          [3]float64
	UseEnvReflections bool
}

// ParamsFromConfig reads the render, light and material sections.
func ParamsFromConfig(cfg *config.Config) ShadeParams {
	return ShadeParams{
		Quality:           cfg.Render.Quality,
		Ambient:           cfg.Light.Ambient,
		Occlusion:         cfg.Light.Occlusion,
		LightPower:        cfg.Light.PointIntensity,
		SideLight:         cfg.Light.SideStrength,
		EnvLight:          cfg.Light.EnvStrength,
		OffsetX:           cfg.Light.OffsetX,
		OffsetY:           cfg.Light.OffsetY,
		Exposure:          cfg.Light.Exposure,
		Reflectivity:      cfg.Material.Reflectivity,
		Sharpness:         cfg.Material.SurfaceSharpness,
		DepthBoost:        cfg.Material.DepthBoost,
		Clarity:           cfg.Material.ReflectionClarity,
		ImpactHighlights:  cfg.Material.ImpactHighlights,
		Iridescence:       cfg.Material.Iridescence,
		Tint:              cfg.Material.Tint,
		FluidRGB:          cfg.Derived.FluidRGB,
		LightRGB:          cfg.Derived.LightRGB,
		UseEnvReflections: cfg.Light.UseEnvReflections,
	}
}

func (p ShadeParams) clamped() ShadeParams {
	p.Ambient = clamp01(p.Ambient)
	p.Occlusion = clamp01(p.Occlusion)
	p.LightPower = math.Max(0, p.LightPower)
	p.SideLight = clamp(p.SideLight, 0, 2.5)
	p.EnvLight = clamp(p.EnvLight, 0, 2.5)
	p.Exposure = clamp(p.Exposure, MinExposure, MaxExposure)
	p.Reflectivity = clamp(p.Reflectivity, 0, 2.2)
	p.Sharpness = clamp(p.Sharpness, 0.6, 2.6)
	p.DepthBoost = clamp(p.DepthBoost, 0.7, 2.5)
	p.Clarity = clamp(p.Clarity, 0.5, 2.5)
	p.ImpactHighlights = clamp(p.ImpactHighlights, 0, 2.5)
	p.Iridescence = clamp(p.Iridescence, 0, 2.4)
	p.Tint = clamp01(p.Tint)
	for i := 0; i < 3; i++ {
		p.FluidRGB[i] = clamp01(p.FluidRGB[i])
		p.LightRGB[i] = clamp01(p.LightRGB[i])
	}
	return p
}

// Vec3 is a direction or position in shading space. +z faces the viewer.
type Vec3 struct{ X, Y, Z float64 }

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Len returns the Euclidean length.
func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length. The zero vector is returned as is.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Lighting holds the per-frame terms shared by every pixel.
type Lighting struct {
	ShadeParams

	Scale float64

	lowQuality     float64
	hotspotScale   float64
	motionGate     float64
	tightExponent  float64
	tintHue        [3]float64
	colorfulness   float64
	pointTint      [3]float64
	bounceColor    [3]float64
	hasEnv         bool
	envBoost       float64
	envAmbientGain float64
	whiteDiffuse   float64
	whiteMirror    float64
	ledStrength    float64
	clarityNorm    float64
	directSpecGain float64
	noEnvBoost     float64
	envGain        float64

	env  EnvironmentSampler
	ring *LEDRing
}

// NewLighting clamps p and precomputes the frame terms. motion is the
// particle motion highlight; env may be nil.
func NewLighting(p ShadeParams, scale, motion float64, env EnvironmentSampler, ring *LEDRing) *Lighting {
	p = p.clamped()
	l := &Lighting{ShadeParams: p, Scale: math.Max(scale, 1e-6), env: env, ring: ring}

	qn := clamp01((p.Quality - 0.6) / (2.4 - 0.6))
	l.lowQuality = 1 - qn
	l.hotspotScale = 0.62 + qn*0.38

	motion = clamp(motion, 0, 2.5)
	l.motionGate = smoothstep(0.14, 1.02, motion)
	l.tightExponent = (210 + l.motionGate*320) * (0.8 + p.Sharpness*0.45)

	f := p.FluidRGB
	luma := math.Max(0.06, f[0]*0.2126+f[1]*0.7152+f[2]*0.0722)
	for i := 0; i < 3; i++ {
		l.tintHue[i] = clamp(f[i]/luma, 0.3, 3)
		l.pointTint[i] = 0.02 + p.LightRGB[i]*0.98
	}
	l.colorfulness = clamp01((max(f[0], f[1], f[2]) - min(f[0], f[1], f[2]) - 0.02) / 0.78)
	l.bounceColor = [3]float64{
		0.72 + p.LightRGB[0]*0.28,
		0.72 + p.LightRGB[1]*0.28,
		0.74 + p.LightRGB[2]*0.26,
	}

	l.hasEnv = p.UseEnvReflections && env != nil
	l.envBoost = 1
	if l.hasEnv {
		l.envBoost = 1.65
	}
	l.envAmbientGain = 0.35 + p.EnvLight*0.65

	reduction := p.Tint * (0.45 + l.colorfulness*0.4)
	l.noEnvBoost = 1.48
	if p.UseEnvReflections {
		diffuseBase, mirrorBase := 0.4, 0.52
		if l.hasEnv {
			diffuseBase, mirrorBase = 0.22, 0.3
		}
		l.whiteDiffuse = clamp(diffuseBase*(1-reduction), 0.04, 0.56)
		l.whiteMirror = clamp(mirrorBase*(1-reduction*0.92)*(1-smoothstep(0.92, 2.3, p.Clarity)*0.62), 0.02, 0.68)
		l.ledStrength = clamp(p.SideLight*(0.34+p.EnvLight*0.46)*(0.3+p.LightPower*0.7), 0, 2.4)
		l.noEnvBoost = 1
		l.envGain = p.EnvLight
	}
	l.clarityNorm = clamp01((p.Clarity - 0.5) / (2.5 - 0.5))

	claritySpecGain := 0.78 + smoothstep(0.5, 2.5, p.Clarity)*1.02
	l.directSpecGain = (0.08 + clamp01(p.LightPower/1.2)*0.34) *
		(0.14 + p.SideLight*0.48) *
		(0.3 + l.motionGate*1.8) *
		(0.6 + p.ImpactHighlights*0.9) *
		claritySpecGain * l.noEnvBoost

	if ring != nil {
		ring.Color = p.LightRGB
		ring.SetBias(p.OffsetX, p.OffsetY)
	}
	return l
}

// Coverage is the opacity shaping around the iso-contour.
type Coverage struct {
	Alpha    float64 // final pixel opacity
	Main     float64 // shaped iso coverage before edge remapping
	Coverage float64
}

// ComputeCoverage blends the raw and blurred field values and shapes a soft
// and a tight smoothstep around the iso-level into pixel opacity.
func (l *Lighting) ComputeCoverage(value, smooth float64) Coverage {
	lq := l.lowQuality
	field := value*(0.76+lq*0.1) + smooth*(0.24-lq*0.1)
	isoWidth := (isoSoftness + edgeFeather) / (0.72 + l.Sharpness*0.68)
	soft := smoothstep(IsoLevel-isoWidth, IsoLevel+isoWidth, field)
	tight := smoothstep(IsoLevel-isoWidth*0.52, IsoLevel+isoWidth*0.52, field)
	main := powPos(soft*0.34+tight*0.66, 1.24-lq*0.2)

	cov := clamp01(main)
	cov = cov*0.34 + smoothstep(0.03, 0.97, cov)*0.66
	edge := smoothstep(0.012, 0.11, cov)
	core := smoothstep(0.15, 0.31, cov)
	alpha := clamp01(edge * (0.46 + core*0.54))
	coreBoost := smoothstep(IsoLevel+0.22, IsoLevel+1.08, smooth)
	alpha = clamp01(alpha + coreBoost*(0.08+lq*0.16))
	return Coverage{Alpha: alpha, Main: main, Coverage: cov}
}

// EstimateNormal builds a surface normal from central differences of the
// field. Steeper surfaces come with a higher sharpness.
func EstimateNormal(left, right, up, down, sharpness float64) Vec3 {
	gain := normalScale * (0.75 + sharpness*0.75)
	return Vec3{(left - right) * gain, (up - down) * gain, 1}.Normalize()
}

// Surface describes the reconstructed height profile at one pixel.
type Surface struct {
	Normal  Vec3
	Height  float64 // smoothed field above the iso-level
	Body    float64 // [0,1]
	Volume  float64 // [0,1]
	Fresnel float64
	Z       float64 // world-space surface elevation
}

// ComputeSurface derives the body mask, fresnel and elevation for a pixel.
func (l *Lighting) ComputeSurface(n Vec3, smooth float64) Surface {
	h := smooth - IsoLevel
	body := clamp01(h * 0.56)
	volume := smoothstep(IsoLevel-0.08, IsoLevel+1.35, smooth)
	depth := l.DepthBoost

	peakLift := math.Log1p(math.Max(0, h)*0.95) * 0.34 * depth
	profile := clamp(
		smoothstep(0, 1, body)*(0.6+depth*0.18)+powPos(volume, 0.72)*(0.2+depth*0.08)+peakLift,
		0, 2)

	return Surface{
		Normal:  n,
		Height:  h,
		Body:    body,
		Volume:  volume,
		Fresnel: powPos(1-n.Z, 1.85+(1/(0.7+l.Sharpness))*0.6),
		Z:       (profile - 0.38) * l.Scale * (0.42 + depth*0.28),
	}
}

// KeyLight is the contribution of the LED ring rim nearest the pixel and of
// the bounce from the opposite rim.
type KeyLight struct {
	Dir           Vec3
	Attenuation   float64
	Half          float64 // N·H
	Diffuse       float64
	Scatter       float64
	Specular      float64
	SpecularTight float64
	Glint         float64

	Wrap        float64
	RimBias     float64
	CenterDamp  float64
	CoreDamp    float64
	FlattenMask float64

	BounceDiffuse  float64
	BounceSpecular float64
}

// ComputeKeyLight places the key light on the capsule rim in the direction
// of the pixel (biased by the light offset) and evaluates diffuse, scatter
// and two specular lobes, plus a weaker bounce from the opposite rim.
func (l *Lighting) ComputeKeyLight(c systems.Capsule, wx, wy float64, s Surface) KeyLight {
	dx := wx - c.CX + c.RX*l.OffsetX*0.32
	dy := wy - c.CY + c.RY*l.OffsetY*0.32
	if math.Abs(dx)+math.Abs(dy) < 1e-4 {
		dx, dy = c.RX*0.24, c.RY*0.03
	}
	norm := math.Max(1e-4, math.Hypot(dx/math.Max(1, c.RX*0.98), dy/math.Max(1, c.RY*0.98)))
	rimX, rimY := c.CX+dx/norm, c.CY+dy/norm
	oppX, oppY := c.CX-dx/norm, c.CY-dy/norm

	radial := math.Hypot((wx-c.CX)/math.Max(1, c.RX), (wy-c.CY)/math.Max(1, c.RY))
	k := KeyLight{
		Wrap:    0.26 + smoothstep(0.04, 0.96, radial)*0.74,
		RimBias: smoothstep(0.22, 0.98, radial),
	}
	k.CenterDamp = 0.14 + k.RimBias*0.86
	k.CoreDamp = 1 - smoothstep(0.4, 0.95, s.Body)*(0.26+(1-k.RimBias)*0.36)

	n := s.Normal
	scale2 := l.Scale * l.Scale
	power, side := l.LightPower, l.SideLight

	toLight := Vec3{rimX - wx, rimY - wy, l.Scale*0.42 - s.Z}
	dist := toLight.Len()
	if dist == 0 {
		dist = 1
	}
	k.Dir = Vec3{toLight.X / dist, toLight.Y / dist, toLight.Z / dist}
	k.Attenuation = 1 / (1 + dist*dist/(scale2*1.45))

	k.FlattenMask = smoothstep(0.74, 1.52, s.Height) * smoothstep(0.58, 1, s.Volume)
	diffuseDamp := clamp(1-k.FlattenMask*clamp(side*0.28+power*0.18, 0, 0.62), 0.38, 1)

	lit := k.Attenuation * power * side
	k.Scatter = lit *
		(0.12 + s.Volume*0.36) *
		(0.35 + (1-math.Abs(n.Y))*0.65) *
		(0.6 + (1-k.RimBias)*0.4) *
		(1 - k.FlattenMask*0.45)

	ndl := math.Max(0, n.Dot(k.Dir))
	k.Diffuse = ndl * lit * k.Wrap * diffuseDamp
	k.Glint = powPos(ndl, 28) * lit * k.CenterDamp

	half := Vec3{k.Dir.X, k.Dir.Y, k.Dir.Z + 1}.Normalize()
	k.Half = math.Max(0, n.Dot(half))
	k.Specular = powPos(k.Half, 66+l.Sharpness*52) * lit * k.Wrap *
		(0.18 + l.motionGate*1.35) * k.CenterDamp
	k.SpecularTight = powPos(k.Half, l.tightExponent) * lit * k.Wrap *
		(0.2 + l.motionGate*3.1) * k.CenterDamp * k.CoreDamp

	toBounce := Vec3{oppX - wx, oppY - wy, l.Scale*0.4 - s.Z}
	bdist := toBounce.Len()
	if bdist == 0 {
		bdist = 1
	}
	bdir := Vec3{toBounce.X / bdist, toBounce.Y / bdist, toBounce.Z / bdist}
	blit := power * side / (1 + bdist*bdist/(scale2*2.9))
	k.BounceDiffuse = math.Max(0, n.Dot(bdir)) * blit *
		(0.18 + k.Wrap*0.34) * (0.55 + diffuseDamp*0.45)
	bhalf := Vec3{bdir.X, bdir.Y, bdir.Z + 1}.Normalize()
	k.BounceSpecular = powPos(math.Max(0, n.Dot(bhalf)), 64) * blit * (0.12 + k.Wrap*0.2)
	return k
}

// Ambient is the room and environment contribution at one pixel.
type Ambient struct {
	Room        float64
	Diffuse     float64
	Occlusion   float64
	EdgeDensity float64
	EnvDiffuse  [3]float64 // 0..255
	EnvMirror   [3]float64 // 0..255
}

// ComputeAmbient evaluates the hemisphere room light with cavity occlusion
// and looks up the diffuse and mirror environment colours along the normal
// and its reflection.
func (l *Lighting) ComputeAmbient(s Surface, k KeyLight, cov Coverage) Ambient {
	n := s.Normal
	mirror := Vec3{2 * n.X * n.Z, 2 * n.Y * n.Z, 2*n.Z*n.Z - 1}
	envV := clamp01(mirror.Y*0.5 + 0.5)

	a := Ambient{
		Room:        1.7 + (1-envV)*2.6 + envV*1.05,
		EdgeDensity: smoothstep(0.05, 0.24, cov.Coverage),
	}
	facing := clamp01(n.Z*0.78 + (1-math.Abs(n.Y))*0.22)
	cavity := smoothstep(0.22, 0.98, s.Body)
	a.Occlusion = clamp(1-l.Occlusion*cavity*(0.86-a.EdgeDensity*0.42), 0.32, 1)
	a.Diffuse = l.Ambient * (0.24 + facing*0.76) * a.Occlusion

	for i := 0; i < 3; i++ {
		a.EnvDiffuse[i] = envGround[i] + (envSky[i]-envGround[i])*envV
	}
	a.EnvMirror = a.EnvDiffuse

	if l.hasEnv {
		if rgb, ok := l.env.Sample(n.X, n.Y, n.Z); ok {
			a.EnvDiffuse = rgb
		}
		if rgb, ok := l.env.Sample(mirror.X, mirror.Y, mirror.Z); ok {
			a.EnvMirror = l.gradeMirror(rgb)
		}
	}

	if l.ledStrength > 0.001 && l.ring != nil {
		d := l.ring.Radiance(n.X, n.Y, n.Z, l.ledStrength)
		m := l.ring.Radiance(mirror.X, mirror.Y, mirror.Z, l.ledStrength*1.18)
		dmix := clamp(0.18+l.ledStrength*0.26, 0.04, 0.9) * (1 - k.FlattenMask*0.35)
		mmix := clamp(0.26+l.ledStrength*0.34, 0.06, 0.96) * (0.82 + (1-k.FlattenMask)*0.18)
		a.EnvDiffuse = mix3(a.EnvDiffuse, d, dmix)
		a.EnvMirror = mix3(a.EnvMirror, m, mmix)
	}

	a.EnvDiffuse = mix3(a.EnvDiffuse, roomWhite, l.whiteDiffuse)
	a.EnvMirror = mix3(a.EnvMirror, roomWhite, l.whiteMirror)
	return a
}

// gradeMirror raises saturation and contrast of a mirror sample with clarity.
func (l *Lighting) gradeMirror(rgb [3]float64) [3]float64 {
	contrast := 1 + l.clarityNorm*1.65
	saturation := 1 + l.clarityNorm*0.28
	r, g, b := rgb[0]/255, rgb[1]/255, rgb[2]/255
	luma := r*0.2126 + g*0.7152 + b*0.0722
	var out [3]float64
	for i, c := range [3]float64{r, g, b} {
		sat := clamp01(luma + (c-luma)*saturation)
		out[i] = clamp01((sat-0.5)*contrast+0.5) * 255
	}
	return out
}

func mix3(a, b [3]float64, t float64) [3]float64 {
	return [3]float64{
		a[0]*(1-t) + b[0]*t,
		a[1]*(1-t) + b[1]*t,
		a[2]*(1-t) + b[2]*t,
	}
}

// Composite combines body tone, highlights and environment terms into
// linear 0..255-scale RGB before tone mapping.
func (l *Lighting) Composite(s Surface, k KeyLight, a Ambient, cov Coverage) [3]float64 {
	edge := a.EdgeDensity
	power, side, refl := l.LightPower, l.SideLight, l.Reflectivity

	hotspot := (k.SpecularTight*520 + k.Specular*170 + k.Glint*90) *
		(0.28 + edge*0.72) * l.hotspotScale
	bounce := (k.BounceDiffuse*12 + k.BounceSpecular*88) *
		(0.34 + edge*0.66) * a.Occlusion * l.hotspotScale * (0.44 + refl*0.56)
	specEdge := smoothstep(0.26, 0.86, cov.Main*0.56+cov.Coverage*0.18+k.RimBias*0.78)
	coreDamp := 1 - smoothstep(0.44, 0.98, s.Body)*(0.36+l.Ambient*0.28)
	clusterDamp := 1 - smoothstep(0.62, 0.98, cov.Main)*0.26
	highlightDamp := clamp(coreDamp*clusterDamp, 0.52, 1)

	splash := k.Diffuse*4.3*(0.18+edge*0.82) + k.Scatter*(2.9+(1-edge)*0.9)
	tone := 0.66 + s.Body*1.46 +
		a.Room*0.52*l.envAmbientGain +
		splash +
		s.Fresnel*2.35 +
		a.Diffuse*3.2*l.envAmbientGain
	tone = ApplyContrast(CompressHighlight(tone, 1.16), 1.18) * (0.82 + k.RimBias*0.24)

	lit := k.Attenuation * power * k.Wrap * side
	secondary := powPos(k.Half, 28+l.Sharpness*26) * lit *
		(0.16 + l.motionGate*1.35) * k.CenterDamp * (0.42 + edge*0.58)
	whiteMirror := (k.Specular*220 + k.SpecularTight*760 + secondary*240 + s.Fresnel*(18+power*56)) *
		(0.24 + edge*0.76) * specEdge * k.CenterDamp * k.CoreDamp *
		refl * l.directSpecGain * highlightDamp * side
	flash := powPos(k.Half, 320+l.motionGate*260) * lit *
		(0.24 + refl*0.76) * specEdge * k.CenterDamp * k.CoreDamp * highlightDamp *
		l.motionGate * l.ImpactHighlights * l.hotspotScale * l.noEnvBoost *
		(24 + l.motionGate*460)
	colored := hotspot * (0.3 + power*0.5) * (0.34 + refl*0.66) * specEdge * k.CenterDamp * k.CoreDamp

	ft := clamp01(s.Normal.Z)
	iriT := (1-ft)*3.6 + (1-k.Half)*2.1 + s.Body*0.35
	iriSpec := clamp01(k.Specular*2.8 + k.SpecularTight*3.2 + k.Diffuse*0.35)
	iridescence := clamp01(powPos(1-ft, 0.75)*1.2) * iriSpec * (0.16 + power*0.54) * 188 * specEdge * l.Iridescence

	tint := l.Tint
	mirrorTint := tint * (0.48 + l.colorfulness*0.95)
	envMirrorTint := tint * (0.24 + l.colorfulness*0.56)
	envCoreDamp := 1 - smoothstep(0.56, 0.99, s.Body)*0.42
	envDiffuse := (2.9 + s.Body*8.2) * a.Diffuse * l.envBoost * 0.6 * l.envGain * envCoreDamp *
		(1 - smoothstep(0.86, 2.2, l.Clarity)*0.38)
	envMirror := (62 + s.Fresnel*230) * (0.24 + l.Ambient*0.56) * a.Occlusion * l.envBoost *
		(0.46 + specEdge*0.54) * refl * l.envGain * highlightDamp *
		(0.9 + smoothstep(0.92, 2.3, l.Clarity)*1.1)
	silver := (5 + s.Fresnel*16) * (0.2 + l.Ambient*0.56) * a.Occlusion * l.envBoost * l.envGain *
		(0.34 + edge*0.66) * envCoreDamp *
		clamp(1-tint*(0.52+l.colorfulness*0.5), 0.2, 1)

	neutral := [3]float64{0.038, 0.043, 0.048}
	mirrorBias := [3]float64{1, 1.01, 1.05}
	silverBias := [3]float64{0.98, 1, 1.06}
	flashBias := [3]float64{0.98, 1, 1.03}

	var out [3]float64
	for i := 0; i < 3; i++ {
		neutralBase := tone * neutral[i]
		tintedBase := tone * (0.012 + l.FluidRGB[i]*0.22)
		base := neutralBase + (tintedBase-neutralBase)*tint

		envTint := 1.0
		if l.UseEnvReflections {
			envTint = 0.22 + math.Sqrt(a.EnvMirror[i]/255)*1.22
		}
		mirror := whiteMirror * mirrorBias[i] * (1 + (l.tintHue[i]-1)*mirrorTint) * envTint
		iri := 0.5 + 0.5*math.Cos(2*math.Pi*(iriT+0.33*float64(i)))

		out[i] = base +
			envDiffuse*(0.18+a.EnvDiffuse[i]/255*0.82) +
			mirror +
			envMirror*(0.2+a.EnvMirror[i]/255*0.8)*(1+(l.tintHue[i]-1)*envMirrorTint) +
			bounce*l.bounceColor[i] +
			silver*silverBias[i] +
			colored*l.pointTint[i] +
			iridescence*iri +
			flash*flashBias[i]
	}
	return out
}

// Shader turns a density field into a non-premultiplied RGBA layer. The
// output image is reused between frames of the same size.
type Shader struct {
	Params ShadeParams

	ring *LEDRing
	img  *image.NRGBA
}

// NewShader creates a shader. seed drives the LED ring segment pattern.
func NewShader(p ShadeParams, seed int64) *Shader {
	return &Shader{Params: p, ring: NewLEDRing(seed)}
}

// Shade renders field into the shader's image. Pixels whose opacity falls
// at or below 0.001 are fully transparent. env may be nil.
func (sh *Shader) Shade(field *systems.DensityField, c systems.Capsule, motion float64, env EnvironmentSampler) *image.NRGBA {
	w, h := field.Width, field.Height
	if sh.img == nil || sh.img.Rect.Dx() != w || sh.img.Rect.Dy() != h {
		sh.img = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	if w == 0 || h == 0 {
		return sh.img
	}

	l := NewLighting(sh.Params, c.Scale, motion, env, sh.ring)
	values := field.Values
	pix := sh.img.Pix
	stride := sh.img.Stride

	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-1)*w, min(h-1, y+1)*w
		row := y * w
		wy := field.WorldY[y]
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-1), min(w-1, x+1)
			v := values[row+x]
			left, right := values[row+x0], values[row+x1]
			up, down := values[y0+x], values[y1+x]
			corners := values[y0+x0] + values[y0+x1] + values[y1+x0] + values[y1+x1]
			smooth := (v*4 + (left+right+up+down)*2 + corners) / 16

			o := y*stride + x*4
			px := pix[o : o+4 : o+4]

			cov := l.ComputeCoverage(v, smooth)
			if cov.Alpha <= transparentAlpha {
				px[0], px[1], px[2], px[3] = 0, 0, 0, 0
				continue
			}

			n := EstimateNormal(left, right, up, down, l.Sharpness)
			s := l.ComputeSurface(n, smooth)
			k := l.ComputeKeyLight(c, field.WorldX[x], wy, s)
			a := l.ComputeAmbient(s, k, cov)
			rgb := l.Composite(s, k, a, cov)

			px[0] = toByte(ToneMap(rgb[0], l.Exposure))
			px[1] = toByte(ToneMap(rgb[1], l.Exposure))
			px[2] = toByte(ToneMap(rgb[2], l.Exposure))
			px[3] = toByte(cov.Alpha * 255)
		}
	}
	return sh.img
}

func toByte(v float64) uint8 {
	return uint8(clamp(math.Round(v), 0, 255))
}
