/*
go-parkcount counts the vehicles parked inside a fixed region of a camera's
view.  Each video frame is passed through an object detector and every
detection of a target class whose box center falls within the region of
interest (ROI) polygon is counted.

The packages are layered as follows.

  - roi: the ROI polygon and point containment
  - occupancy: per frame evaluation of detections against the ROI
  - detect: the YOLOv5 ONNX detector run on OpenCV's DNN module
  - render: annotation of boxes, the ROI outline and the count
  - stream: the frame loop with its video sources and sinks
  - metrics: Prometheus metrics of the frame loop

This package holds the configuration loaded from a JSON file, the logger
setup and CPU affinity helpers shared by the command line tools.

See the parking example for usage.
*/
package parkcount
