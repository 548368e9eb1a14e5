package viamhandeye

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/resource"
	rdkutils "go.viam.com/rdk/utils"

	"viamhandeye/collect"
	"viamhandeye/pose"
)

// armRobot adapts an arm.Arm to the collector's robot contract and to the
// auto-drive moves of the sample plan.
type armRobot struct {
	arm arm.Arm
}

func (a *armRobot) ToolPose(ctx context.Context) (pose.Pose, error) {
	sp, err := a.arm.EndPosition(ctx, nil)
	if err != nil {
		return pose.Pose{}, err
	}
	return pose.FromSpatial(sp), nil
}

func (a *armRobot) MoveTo(ctx context.Context, p pose.Pose) error {
	return a.arm.MoveToPosition(ctx, p.Spatial(), nil)
}

// cameraCapture adapts a camera.Camera to the collector's capture contract.
type cameraCapture struct {
	camera camera.Camera
}

func (c *cameraCapture) Capture(ctx context.Context) ([]byte, error) {
	img, _, err := c.camera.Image(ctx, rdkutils.MimeTypeJPEG, nil)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// commandDetector drives a marker-detector resource over DoCommand. The
// detector is expected to answer {"command": "detect", "image": <base64>}
// with a "detections" list carrying id, confidence, corners and an optional
// pose with translation and rotation_vector.
type commandDetector struct {
	resource resource.Resource
}

func (d *commandDetector) Detect(ctx context.Context, img []byte) ([]collect.Detection, error) {
	resp, err := d.resource.DoCommand(ctx, map[string]interface{}{
		"command": "detect",
		"image":   base64.StdEncoding.EncodeToString(img),
	})
	if err != nil {
		return nil, err
	}

	raw, ok := resp["detections"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("detector response missing detections list: %v", resp)
	}

	detections := make([]collect.Detection, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("detection %d is not an object", i)
		}
		det := collect.Detection{}
		if id, ok := m["id"].(float64); ok {
			det.ID = int(id)
		}
		if conf, ok := m["confidence"].(float64); ok {
			det.Confidence = conf
		}
		if corners, ok := m["corners"].([]interface{}); ok {
			for _, c := range corners {
				xy, err := floatsFrom(c, 2)
				if err != nil {
					return nil, fmt.Errorf("detection %d has a bad corner: %w", i, err)
				}
				det.Corners = append(det.Corners, [2]float64{xy[0], xy[1]})
			}
		}
		if pm, ok := m["pose"].(map[string]interface{}); ok {
			t, err := floatsFrom(pm["translation"], 3)
			if err != nil {
				return nil, fmt.Errorf("detection %d has a bad pose translation: %w", i, err)
			}
			rv, err := floatsFrom(pm["rotation_vector"], 3)
			if err != nil {
				return nil, fmt.Errorf("detection %d has a bad pose rotation: %w", i, err)
			}
			p := pose.New(
				r3.Vector{X: t[0], Y: t[1], Z: t[2]},
				r3.Vector{X: rv[0], Y: rv[1], Z: rv[2]},
			)
			det.Pose = &p
		}
		detections = append(detections, det)
	}
	return detections, nil
}

// floatsFrom coerces a DoCommand value into a fixed-length float slice.
// Values decoded from protobuf structs arrive as []interface{} of float64.
func floatsFrom(v interface{}, n int) ([]float64, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list of %d numbers, got %T", n, v)
	}
	if len(list) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(list))
	}
	out := make([]float64, n)
	for i, e := range list {
		f, ok := e.(float64)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, not a number", i, e)
		}
		out[i] = f
	}
	return out, nil
}

func poseToMap(p pose.Pose) map[string]interface{} {
	return map[string]interface{}{
		"translation": []interface{}{p.Translation.X, p.Translation.Y, p.Translation.Z},
		"rotation_vector": []interface{}{
			p.Rotation.X, p.Rotation.Y, p.Rotation.Z,
		},
	}
}

func poseFrom(v interface{}) (pose.Pose, error) {
	arr, err := floatsFrom(v, 6)
	if err != nil {
		return pose.Pose{}, err
	}
	return pose.FromArray([6]float64{arr[0], arr[1], arr[2], arr[3], arr[4], arr[5]}), nil
}
