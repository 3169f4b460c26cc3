package tasks

import (
	"fmt"
	"strings"
)

type colored struct {
	label string
	color string
}

// Segment-Locus-Valence markup: background color for locus, text color for valence.
var (
	slvLoci = []colored{
		{"int", "blue"},
		{"ext", "gray"},
	}
	slvValences = []colored{
		{"neg", "red"},
		{"neu", "orange"},
		{"posit", "green"},
	}
	cohLevels = []colored{
		{"low", "red"},
		{"mid", "orange"},
		{"high", "green"},
	}
)

func slvCodes() []CodeStyle {
	codes := make([]CodeStyle, 0, len(slvLoci)*len(slvValences))
	for _, l := range slvLoci {
		for _, v := range slvValences {
			codes = append(codes, CodeStyle{
				Code:   fmt.Sprintf("_%s_%s_", l.label, v.label),
				Markup: fmt.Sprintf(`:%s-background[:%s[***\_%s\_%s\_***]]`, l.color, v.color, l.label, v.label),
			})
		}
	}
	return codes
}

func slvLegend() string {
	parts := make([]string, 0, len(slvLoci)+len(slvValences))
	for _, l := range slvLoci {
		parts = append(parts, fmt.Sprintf(":%s-background[%s]", l.color, l.label))
	}
	for _, v := range slvValences {
		parts = append(parts, fmt.Sprintf(":%s[%s]", v.color, v.label))
	}
	return strings.Join(parts, ", ")
}

func cohCodes() []CodeStyle {
	codes := make([]CodeStyle, 0, len(cohLevels))
	for _, l := range cohLevels {
		codes = append(codes, CodeStyle{
			Code:   fmt.Sprintf("_%s_", l.label),
			Markup: fmt.Sprintf(`:gray-background[:%s[***\_%s\_***]]`, l.color, l.label),
		})
	}
	return codes
}

func cohLegend() string {
	parts := make([]string, 0, len(cohLevels))
	for _, l := range cohLevels {
		parts = append(parts, fmt.Sprintf(":%s[%s]", l.color, l.label))
	}
	return strings.Join(parts, ", ")
}

const memoryInputFormat = "You will be given as input text written by a patient, describing a memory."

func builtin() []Definition {
	return []Definition{
		{
			Name:           SegmentLocusValence,
			TaskDefinition: "Each memory should be divided to segments, and each segment should be coded to its locus, which can be internal (meaning it pertains directly to the main event of the memory) or external (meaning it is not part of the main event of the memory), and to its valence, which can be positive, neutral or negative.",
			InputFormat:    memoryInputFormat,
			OutputFormat:   "For each input you get, you will only output the same input, with additional coding of the locus and valence for each segment of the memory. A segment is an information bit; it is a unique occurrence, observation, fact, statement, or thought. This will usually be a grammatical clause, a part of a sentence that independently conveys information. The codings are in the pattern of _locus_valence_, coming right after the corresponding segment. The locus part can be either int (for internal) or ext (for external). The valence part can be one of the following: posit (for positive), neu (for neutral) or neg (for negative).",
			CorrectExamples: []Example{
				Structured(
					"I'm on stage and I start speaking my speech of any topic and I do start babbling and messing up on words. It was right after lunch. I even sound nervous and then people's reactions are giving off a kind of what is this guy doing he can't even give a speech right? It was similar to what happened to the principal last year. As I go on people start even leaving or just don't even enjoy it. They start yawning, etc. and I don't break down though. I just continue all the way till the end but at the same time I have that same distressed feeling the whole way.",
					"I'm on stage _int_neu_ and I start speaking my speech of any topic _int_neu_ and I do start babbling _int_neg_ and messing up on words. _int_neg_ It was right after lunch. _ext_neu_ I even sound nervous _int_neg_ and then people's reactions are giving off a kind of what is this guy doing he can't even give a speech right? _int_neg_ It was similar to what happened to the principal last year. _ext_neu_ As I go on people start even leaving _int_neg_ or just don't even enjoy it. _int_neg_ They start yawning, etc. _int_neg_ and I don't break down though. _int_posit_ I just continue all the way till the end _int_posit_ but at the same time I have that same distressed feeling the whole way. _int_neg_",
					"The main event of the memory is messing up a speech on stage",
				),
			},
			IncorrectExamples: []Example{
				Structured(
					"When I was at the beach it was lovely, sunny and beautiful. But then something terrible happened, I was attacked. It was bad. I am someone who is very afraid.",
					"When I was at the beach _ext_neu_ it was lovely, sunny and beautiful. _ext_posit_ But then something terrible happened, _int_neg_ I was attacked. _int_neg_ It was bad. _int_neg_ I am someone who is very afraid. _int_neg_",
					"The first two segments are coded correctly as external, since they don't discuss the main event (the attack) directly, and the next three segments are coded correctly as internal, since they do. However, the last segment, 'I am someone who is very afraid.', doesn't discuss the attack, but describes the patient in general. Therefore it should be coded as external rather than internal, so it should be: _ext_neg_ .",
				),
			},
			Codes:  slvCodes(),
			Legend: slvLegend(),
		},
		{
			Name:           SentenceCoherence,
			TaskDefinition: "Each memory should be divided to sentences, and each sentence should be coded to its coherence, which can be high, low or mediocre.",
			InputFormat:    memoryInputFormat,
			OutputFormat:   "For each input you get, you will only output the same input, with additional coding of the coherence for each sentence of the memory. The codings are in the pattern of _coherence_, coming right after the corresponding sentence, where the coherence part can be one of the following: high, low or mid (for mediocre).",
			CorrectExamples: []Example{
				Structured(
					"It was in the middle of the summer. I think it might have been the middle of July, but frankly I'm not quite sure... It happened really fast. Suddenly, I'm not sure how, since it happened without my awareness, but I swear to god (and you have to believe me!), he just came...",
					"It was in the middle of the summer. _high_ I think it might have been the middle of July, but frankly I'm not quite sure... _mid_ It happened really fast. _high_ Suddenly, I'm not sure how, since it happened without my awareness, but I swear to god (and you have to believe me!), he just came... _low_",
					"",
				),
			},
			Codes:  cohCodes(),
			Legend: cohLegend(),
		},
	}
}
