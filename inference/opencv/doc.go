// Package opencv runs detection models through the OpenCV DNN module.
//
// The backend is only compiled with the gocv build tag, which requires OpenCV
// to be installed. Importing the package registers inference.EngineOpenCV.
package opencv
