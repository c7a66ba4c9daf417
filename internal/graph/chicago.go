package graph

import t "github.com/evanhutnik/aegis-service/internal/types"

// chicagoNeighbors lists which of Chicago's 77 community areas share a border.
var chicagoNeighbors = map[t.AreaID][]t.AreaID{
	1:  {2, 77},
	2:  {1, 3, 76, 77},
	3:  {2, 4, 77},
	4:  {3, 13, 14, 77},
	5:  {6, 7, 21},
	6:  {3, 5, 7, 21, 22},
	7:  {5, 6, 21, 22},
	8:  {24, 28, 32, 33},
	9:  {10, 11},
	10: {9, 11, 12, 13, 14},
	11: {9, 10, 27, 28, 29},
	12: {10, 13, 14, 15, 16, 17},
	13: {4, 10, 12, 14},
	14: {4, 10, 12, 13, 15, 16},
	15: {12, 14, 16, 17},
	16: {12, 14, 15, 17, 18, 19, 20},
	17: {12, 15, 16, 18},
	18: {16, 17, 19, 25},
	19: {16, 18, 20, 25},
	20: {16, 19, 21, 22},
	21: {5, 6, 7, 20, 22, 23},
	22: {6, 7, 20, 21, 23},
	23: {21, 22, 24, 27, 28},
	24: {8, 23, 28, 32},
	25: {18, 19, 27, 29, 30},
	26: {27, 29},
	27: {11, 23, 25, 26, 28, 29, 30},
	28: {8, 11, 23, 24, 27, 32, 33},
	29: {11, 25, 26, 27, 30, 31, 58, 59},
	30: {25, 27, 29, 31, 57, 58},
	31: {29, 30, 32, 38, 58, 59},
	32: {8, 24, 28, 31, 33, 34, 38},
	33: {8, 28, 32, 34, 60},
	34: {32, 33, 35, 60},
	35: {34, 60, 61},
	36: {37, 38, 39, 60},
	37: {36, 38, 40},
	38: {31, 32, 36, 37, 39, 40},
	39: {36, 38, 40, 41, 42},
	40: {37, 38, 39, 41},
	41: {39, 40, 42, 43},
	42: {39, 41, 43, 60, 61, 69},
	43: {41, 42, 44, 61, 67},
	44: {43, 45, 62, 67, 68},
	45: {44, 46, 68},
	46: {45, 47, 48, 68, 69},
	47: {46, 48, 69},
	48: {46, 47, 49, 69, 70},
	49: {48, 50, 70},
	50: {49, 51, 54, 70},
	51: {50, 52, 53, 54, 55},
	52: {51, 53, 55},
	53: {51, 52, 54, 55},
	54: {50, 51, 53, 70, 74, 75},
	55: {51, 52, 53},
	56: {57, 62, 63, 64},
	57: {30, 55, 56, 58, 63},
	58: {29, 30, 31, 57, 59, 63, 64},
	59: {29, 31, 58, 60, 64, 65},
	60: {33, 34, 35, 36, 39, 42, 59, 61, 66},
	61: {35, 42, 43, 60, 62, 66, 67},
	62: {44, 56, 61, 63, 67},
	63: {56, 57, 58, 62, 64, 67, 68},
	64: {56, 58, 59, 63, 65, 68},
	65: {59, 64, 68, 69},
	66: {60, 61, 67, 71},
	67: {43, 44, 61, 62, 63, 66, 68},
	68: {44, 45, 46, 63, 64, 65, 67, 69},
	69: {42, 46, 47, 48, 65, 68, 70, 72, 73},
	70: {48, 49, 50, 54, 69, 73},
	71: {66, 72, 74, 75},
	72: {69, 71, 73, 74, 75},
	73: {69, 70, 72, 74},
	74: {54, 71, 72, 73, 75},
	75: {54, 71, 72, 74},
	76: {2, 77},
	77: {1, 2, 3, 4, 76},
}

// Chicago returns the community area adjacency graph.
func Chicago() *Graph {
	return New(chicagoNeighbors)
}
