package preview

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/logger"
	vec "github.com/Faultbox/meshkit/pkg/math"
	"github.com/Faultbox/meshkit/pkg/mesh"
	"github.com/Faultbox/meshkit/pkg/tessellate"
)

const floatSize = 4

// meshStride is the byte size of one interleaved vertex (xyz + rgba).
const meshStride = 7 * floatSize

// Renderer draws tessellated meshes and grabber points.
type Renderer struct {
	width, height int

	meshProgram    uint32
	meshProjection int32
	meshVAO        uint32
	meshVBO        uint32
	meshEBO        uint32
	meshVBOCap     int
	meshEBOCap     int
	indexCount     int32
	gridSize       mesh.Size

	grabberProgram    uint32
	grabberProjection int32
	grabberPointSize  int32
	grabberVAO        uint32
	grabberVBO        uint32
	grabberCount      int32
}

// NewRenderer sets up GL state and buffers.
// Must be called after the OpenGL context is created.
func NewRenderer(width, height int) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	r := &Renderer{}

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Enable(gl.MULTISAMPLE)
	gl.ClearColor(0.08, 0.08, 0.1, 1.0)

	var err error
	if r.meshProgram, err = compileProgram(meshVertexShader, meshFragmentShader); err != nil {
		return nil, fmt.Errorf("mesh program: %w", err)
	}
	if r.meshProjection, err = uniform(r.meshProgram, "uProjection"); err != nil {
		r.Close()
		return nil, err
	}

	if r.grabberProgram, err = compileProgram(grabberVertexShader, grabberFragmentShader); err != nil {
		r.Close()
		return nil, fmt.Errorf("grabber program: %w", err)
	}
	if r.grabberProjection, err = uniform(r.grabberProgram, "uProjection"); err != nil {
		r.Close()
		return nil, err
	}
	if r.grabberPointSize, err = uniform(r.grabberProgram, "uPointSize"); err != nil {
		r.Close()
		return nil, err
	}

	r.createMeshBuffers()
	r.createGrabberBuffers()
	r.Resize(width, height)
	return r, nil
}

func (r *Renderer) createMeshBuffers() {
	gl.GenVertexArrays(1, &r.meshVAO)
	gl.GenBuffers(1, &r.meshVBO)
	gl.GenBuffers(1, &r.meshEBO)

	gl.BindVertexArray(r.meshVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.meshVBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.meshEBO)

	// Position (location 0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, meshStride, 0)
	gl.EnableVertexAttribArray(0)

	// Colour (location 1)
	gl.VertexAttribPointerWithOffset(1, 4, gl.FLOAT, false, meshStride, 3*floatSize)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
}

func (r *Renderer) createGrabberBuffers() {
	gl.GenVertexArrays(1, &r.grabberVAO)
	gl.GenBuffers(1, &r.grabberVBO)

	gl.BindVertexArray(r.grabberVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.grabberVBO)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 2*floatSize, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
}

// Close releases GL resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	for _, vao := range []*uint32{&r.meshVAO, &r.grabberVAO} {
		if *vao != 0 {
			gl.DeleteVertexArrays(1, vao)
			*vao = 0
		}
	}
	for _, buf := range []*uint32{&r.meshVBO, &r.meshEBO, &r.grabberVBO} {
		if *buf != 0 {
			gl.DeleteBuffers(1, buf)
			*buf = 0
		}
	}
	for _, prog := range []*uint32{&r.meshProgram, &r.grabberProgram} {
		if *prog != 0 {
			gl.DeleteProgram(*prog)
			*prog = 0
		}
	}
}

// Resize sets the framebuffer size in pixels.
func (r *Renderer) Resize(width, height int) {
	r.width, r.height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// UploadMesh replaces the mesh geometry. Buffers grow as needed and are
// otherwise updated in place.
func (r *Renderer) UploadMesh(buf *tessellate.Buffer) {
	vertices := buf.Interleaved()

	gl.BindVertexArray(r.meshVAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, r.meshVBO)
	if n := len(vertices) * floatSize; n > r.meshVBOCap {
		gl.BufferData(gl.ARRAY_BUFFER, n, gl.Ptr(vertices), gl.DYNAMIC_DRAW)
		r.meshVBOCap = n
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, n, gl.Ptr(vertices))
	}

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.meshEBO)
	if n := len(buf.Indices) * 4; n > r.meshEBOCap {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, n, gl.Ptr(buf.Indices), gl.DYNAMIC_DRAW)
		r.meshEBOCap = n
	} else {
		gl.BufferSubData(gl.ELEMENT_ARRAY_BUFFER, 0, n, gl.Ptr(buf.Indices))
	}

	gl.BindVertexArray(0)
	r.indexCount = int32(len(buf.Indices))
	r.gridSize = buf.Size
}

// UploadGrabbers replaces the grabber points, given in window coordinates.
// scale converts them to framebuffer pixels on high-DPI displays.
func (r *Renderer) UploadGrabbers(points []vec.Vec2, scale float64) {
	data := make([]float32, 0, len(points)*2)
	for _, p := range points {
		data = append(data, float32(p.X*scale), float32(p.Y*scale))
	}

	r.grabberCount = int32(len(points))
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, r.grabberVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*floatSize, gl.Ptr(data), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Draw renders one frame. radius is the grabber radius in framebuffer pixels.
func (r *Renderer) Draw(radius float64) {
	gl.Clear(gl.COLOR_BUFFER_BIT)

	if r.indexCount > 0 && r.gridSize.Valid() {
		// Grid space with y up, matching the grabber mapping.
		proj := vec.Ortho(0, float32(r.gridSize.Width-1), 0, float32(r.gridSize.Height-1), -1, 1)
		gl.UseProgram(r.meshProgram)
		gl.UniformMatrix4fv(r.meshProjection, 1, false, proj.Ptr())
		gl.BindVertexArray(r.meshVAO)
		gl.DrawElementsWithOffset(gl.TRIANGLES, r.indexCount, gl.UNSIGNED_INT, 0)
	}

	if r.grabberCount > 0 {
		// Pixel space with y down.
		proj := vec.Ortho(0, float32(r.width), float32(r.height), 0, -1, 1)
		gl.UseProgram(r.grabberProgram)
		gl.UniformMatrix4fv(r.grabberProjection, 1, false, proj.Ptr())
		gl.Uniform1f(r.grabberPointSize, float32(radius*2))
		gl.BindVertexArray(r.grabberVAO)
		gl.DrawArrays(gl.POINTS, 0, r.grabberCount)
	}

	gl.BindVertexArray(0)
}

// ReadPixels returns the framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() []byte {
	pixels := make([]byte, r.width*r.height*4)
	gl.ReadPixels(0, 0, int32(r.width), int32(r.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}
