// Package report renders exploration runs: PNG plots of the belief map and
// the entropy trace via gonum/plot, and a self-contained HTML page of the
// same data via go-echarts.
//
// Recorder collects step results from explore.Explorer.Run and can write a
// belief PNG after every step, the way a live view would refresh.
package report
